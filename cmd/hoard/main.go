package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hoard-go/internal/app"
	"hoard-go/internal/config"
	"hoard-go/internal/hoard"
	"hoard-go/internal/runlock"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a HoardApp. The caller must defer
// app.Close(). operation identifies the CLI command being run (e.g. "Sync").
func newApp(operation string, dryRun bool) (*app.HoardApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewHoardApp(cfg, operation, dryRun)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "hoard",
	Short: "Pull remote collections onto local archive storage",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()

		cfg := config.NewConfig(hostID, defaults["base_dir"], defaults["archive_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID:     %s\n", hostID)
		fmt.Printf("Base Dir:    %s\n", defaults["base_dir"])
		fmt.Printf("Archive Dir: %s\n", defaults["archive_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:     %s\n", cfg.HostID)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Archive Dir: %s\n", cfg.ArchiveDir)
		fmt.Printf("Lock Path:   %s\n", cfg.LockPath)
		fmt.Printf("Retention:   %s\n", cfg.Retention)
		fmt.Printf("Sources:     %d\n", len(cfg.Sources))
		for _, s := range cfg.Sources {
			fmt.Printf("  - %s (%s)\n", s.Name, s.Type)
		}
		return nil
	},
}

// key command
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage snapshot encryption keys",
}

var keyInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the snapshot encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetupKeys", false)
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase(true)
		if err != nil {
			return err
		}

		if err := a.SetupKeys(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}

		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull every configured source into the archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		only, _ := cmd.Flags().GetString("source")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		a, err := newApp("Sync", dryRun)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.AcquireLock(); err != nil {
			if errors.Is(err, runlock.ErrAlreadyRunning) {
				// Another invocation is live; overlapping cron ticks are
				// expected and must not raise an error.
				fmt.Println("Another sync is already running; nothing to do.")
				return nil
			}
			return fmt.Errorf("acquiring run lock: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sum, err := a.Sync(ctx, only)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		fmt.Println(sum.OneLine())
		if sum.Status() == hoard.StatusTotalFailure {
			return fmt.Errorf("nothing was archived")
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View sync run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History", false)
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No sync runs recorded.")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if r.FinishedAt.Valid {
				d := r.FinishedAt.Time.Sub(r.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %s  %-16s  %dC %dU %dS %dF  %s\n",
				r.ID,
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.Status,
				r.Created,
				r.Updated,
				r.Skipped,
				r.Failed,
				duration,
			)
		}
		return nil
	},
}

// report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "View the most recent run report",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Report", false)
		if err != nil {
			return err
		}
		defer a.Close()

		body, err := a.LatestReport()
		if err != nil {
			return err
		}

		fmt.Print(body)
		return nil
	},
}

// snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect archived snapshots",
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show SOURCE ENDPOINT",
	Short: "Print an archived snapshot, decrypting it when needed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ReadSnapshot", false)
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase := ""
		if a.EncryptionConfigured() {
			passphrase, err = readPassphrase(false)
			if err != nil {
				return err
			}
		}

		data, err := a.ReadSnapshot(args[0], args[1], passphrase)
		if err != nil {
			return err
		}

		os.Stdout.Write(data)
		return nil
	},
}

// readPassphrase prompts on the terminal with echo disabled. With confirm set
// it asks twice and requires both entries to match.
func readPassphrase(confirm bool) (string, error) {
	fmt.Fprint(os.Stderr, "Passphrase: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}

	if confirm {
		fmt.Fprint(os.Stderr, "Confirm passphrase: ")
		second, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading passphrase confirmation: %w", err)
		}
		if string(first) != string(second) {
			return "", fmt.Errorf("passphrases do not match")
		}
	}

	return string(first), nil
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// key subcommands
	keyCmd.AddCommand(keyInitCmd)

	// snapshot subcommands
	snapshotCmd.AddCommand(snapshotShowCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().String("source", "", "Sync only the named source")
	syncCmd.Flags().Bool("dry-run", false, "Fetch and classify without writing to the archive")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(snapshotCmd)
}
