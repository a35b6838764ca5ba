package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"hoard-go/internal/archive"
	"hoard-go/internal/config"
	"hoard-go/internal/database"
	"hoard-go/internal/encryption"
	"hoard-go/internal/fetch"
	"hoard-go/internal/hoard"
	"hoard-go/internal/notify"
	"hoard-go/internal/report"
	"hoard-go/internal/runlock"
)

// HoardApp is the application layer between the CLI and HoardService.
// It constructs all dependencies from config, owns the run lock, and manages
// resource lifecycles on Close.
type HoardApp struct {
	cfg       *config.Config
	store     hoard.RunStore
	notifier  hoard.Notifier
	reports   *report.Writer
	encryptor hoard.Encryptor
	logger    hoard.Logger
	logCloser io.Closer
	lock      *runlock.Lock
	clock     hoard.Clock
	runID     string
	dryRun    bool
}

// NewHoardApp creates a fully wired HoardApp from the given config.
// operation identifies the CLI command being run (e.g. "Sync", "History").
// A dry run substitutes an in-memory run store and a no-op notifier, so
// classification can be inspected without leaving a trace.
// The caller must call Close when done.
func NewHoardApp(cfg *config.Config, operation string, dryRun bool) (*HoardApp, error) {
	return newHoardApp(cfg, operation, dryRun, hoard.UUIDGenerator{})
}

func newHoardApp(cfg *config.Config, operation string, dryRun bool, idgen hoard.IDGenerator) (*HoardApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	runID := idgen.New()

	logger, logCloser, err := newLogger(cfg.Log, runID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger.Info("starting", "operation", operation)

	dbCfg := cfg.Database
	if dryRun {
		dbCfg = config.DatabaseConfig{Type: "memory"}
	}
	store, err := database.NewStoreFromConfig(dbCfg, cfg.HostID)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("creating run store: %w", err)
	}
	if err := store.CheckMigrations(); err != nil {
		store.Close()
		logCloser.Close()
		return nil, fmt.Errorf("run database schema out of date: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		store.Close()
		logCloser.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	var notifier hoard.Notifier = notify.NewNopNotifier()
	if !dryRun {
		notifier, err = notify.NewNotifierFromConfig(cfg.Notify)
		if err != nil {
			store.Close()
			logCloser.Close()
			return nil, fmt.Errorf("creating notifier: %w", err)
		}
	}

	return &HoardApp{
		cfg:       cfg,
		store:     store,
		notifier:  notifier,
		reports:   report.NewWriter(cfg.ArchiveDir, filepath.Join(cfg.BaseDir, "reports")),
		encryptor: enc,
		logger:    &slogAdapter{l: logger},
		logCloser: logCloser,
		clock:     hoard.RealClock{},
		runID:     runID,
		dryRun:    dryRun,
	}, nil
}

// AcquireLock takes the single-instance run lock. Returns
// runlock.ErrAlreadyRunning when another live invocation holds it; callers
// treat that as a deliberate no-op. Signal handling stays with the CLI: its
// context cancellation winds the run down and Close releases the lock.
func (a *HoardApp) AcquireLock() error {
	lock, err := runlock.Acquire(a.cfg.LockPath)
	if err != nil {
		return err
	}
	a.lock = lock
	return nil
}

// Sync runs one complete pull pass. When only is non-empty, the pass is
// restricted to the configured source with that name.
// The caller must hold the lock (AcquireLock).
//
// An error return is a precondition failure (bad source config, unreachable
// run store): nothing was fetched or archived, and the operator is notified
// here because no run report will carry the news.
func (a *HoardApp) Sync(ctx context.Context, only string) (*hoard.RunSummary, error) {
	sum, err := a.sync(ctx, only)
	if err != nil {
		if nerr := a.notifier.Send("hoard sync FAILED: run did not start", err.Error()+"\n"); nerr != nil {
			a.logger.Warn("precondition notification failed", "error", nerr)
		}
	}
	return sum, err
}

func (a *HoardApp) sync(ctx context.Context, only string) (*hoard.RunSummary, error) {
	sources, err := a.buildSources(only)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		if only != "" {
			return nil, fmt.Errorf("no source named %s is configured", only)
		}
		return nil, fmt.Errorf("no sources configured")
	}

	svc := hoard.NewHoardService(sources, a.store, a.reports, a.notifier, a.logger, a.clock, a.runID, a.dryRun)
	return svc.Run(ctx)
}

// buildSources wires one hoard.Source per GitHub source and one per Paymo
// endpoint. A missing credential is a precondition error: the run aborts
// before any fetch begins.
func (a *HoardApp) buildSources(only string) ([]hoard.Source, error) {
	fetchCfg := a.cfg.Fetch
	now := a.clock.Now()

	var sources []hoard.Source
	for _, sc := range a.cfg.Sources {
		if only != "" && sc.Name != only {
			continue
		}
		token := sc.Credential()

		switch sc.Type {
		case "github":
			if token == "" && sc.Owner == "" {
				return nil, fmt.Errorf("github source %s requires a token to list the authenticated user's repositories", sc.Name)
			}
			client := fetch.NewClient(fetch.Auth{Bearer: token},
				fetchCfg.ConnectTimeout(), fetchCfg.Timeout(), fetchCfg.Delay())
			fetcher := fetch.NewGitHubFetcher(client, sc.APIBase, sc.Owner, fetchCfg.PerPage, fetchCfg.MaxPages)

			arch, err := archive.NewMirrorArchive(filepath.Join(a.cfg.ArchiveDir, "mirror", sc.Name), token)
			if err != nil {
				return nil, fmt.Errorf("creating mirror archive for %s: %w", sc.Name, err)
			}

			sources = append(sources, hoard.Source{
				Name:     sc.Name,
				Fetcher:  fetcher,
				Archiver: arch,
				Filter:   hoard.Filter{IncludeForks: sc.IncludeForks},
			})

		case "paymo":
			if token == "" {
				return nil, fmt.Errorf("paymo source %s requires a token", sc.Name)
			}
			// Paymo basic auth: the API key as username, any password.
			client := fetch.NewClient(fetch.Auth{Username: token, Password: "X"},
				fetchCfg.ConnectTimeout(), fetchCfg.Timeout(), fetchCfg.Delay())

			arch, err := archive.NewSnapshotArchive(
				filepath.Join(a.cfg.ArchiveDir, "snapshots", sc.Name),
				a.retention(), a.encryptor, a.runID, now)
			if err != nil {
				return nil, fmt.Errorf("creating snapshot archive for %s: %w", sc.Name, err)
			}

			for _, ep := range sc.Endpoints {
				fetcher := fetch.NewPaymoFetcher(client, sc.APIBase, ep)
				sources = append(sources, hoard.Source{
					Name:     sc.Name + "/" + fetch.EndpointName(ep),
					Fetcher:  fetcher,
					Archiver: arch,
				})
			}

		default:
			return nil, fmt.Errorf("source %s has unknown type %q", sc.Name, sc.Type)
		}
	}

	return sources, nil
}

func (a *HoardApp) retention() string {
	if a.cfg.Retention == "" {
		return archive.RetentionSnapshot
	}
	return a.cfg.Retention
}

// History returns the most recent runs from the run store.
func (a *HoardApp) History(limit int) ([]*hoard.RunRecord, error) {
	return a.store.ListRuns(limit)
}

// LatestReport returns the contents of the most recent run report.
func (a *HoardApp) LatestReport() (string, error) {
	return a.reports.Latest()
}

// SetupKeys generates the snapshot encryption key pair.
func (a *HoardApp) SetupKeys(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("encryption is not enabled in the configuration")
	}
	if a.encryptor.IsConfigured() {
		return fmt.Errorf("encryption keys already exist")
	}
	return a.encryptor.Setup(passphrase)
}

// EncryptionConfigured reports whether snapshot encryption is enabled and
// its key material exists.
func (a *HoardApp) EncryptionConfigured() bool {
	return a.encryptor != nil && a.encryptor.IsConfigured()
}

// ReadSnapshot returns the archived snapshot for one source endpoint,
// decrypting it when the archive is encrypted.
func (a *HoardApp) ReadSnapshot(source, endpoint, passphrase string) ([]byte, error) {
	root := filepath.Join(a.cfg.ArchiveDir, "snapshots", source)
	return archive.ReadSnapshotFile(root, endpoint, a.encryptor, passphrase)
}

// Close releases the lock and closes all resources. Safe on every exit path.
func (a *HoardApp) Close() error {
	var firstErr error

	a.lock.Release()

	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing run store: %w", err)
	}
	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log: %w", err)
		}
	}

	return firstErr
}
