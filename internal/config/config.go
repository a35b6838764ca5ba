package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the main configuration for hoard. It is constructed once at
// startup and passed to every component; nothing mutates it afterwards.
type Config struct {
	HostID     string           `toml:"host_id"`
	BaseDir    string           `toml:"base_dir"`    // state: database, reports, keys
	ArchiveDir string           `toml:"archive_dir"` // the NAS mount the data lands on
	LockPath   string           `toml:"lock_path"`
	Log        LogConfig        `toml:"log"`
	Fetch      FetchConfig      `toml:"fetch"`
	Database   DatabaseConfig   `toml:"database"`
	Encryption EncryptionConfig `toml:"encryption"`
	Notify     NotifyConfig     `toml:"notify"`
	Retention  string           `toml:"retention"` // "snapshot" (default) or "append"
	Sources    []SourceConfig   `toml:"sources"`
}

// LogConfig controls the rotating operational log.
type LogConfig struct {
	Dir        string `toml:"dir"`
	MaxSizeMB  int    `toml:"max_size_mb"`  // rotate after this many megabytes
	MaxBackups int    `toml:"max_backups"`  // rotated files to keep
	MaxAgeDays int    `toml:"max_age_days"` // prune rotated files older than this
}

// FetchConfig bounds all remote HTTP traffic.
type FetchConfig struct {
	ConnectTimeoutSeconds int `toml:"connect_timeout_seconds"`
	TimeoutSeconds        int `toml:"timeout_seconds"`
	DelayMillis           int `toml:"delay_ms"` // fixed inter-request delay
	PerPage               int `toml:"per_page"`
	MaxPages              int `toml:"max_pages"`
}

// ConnectTimeout returns the connect timeout with its default applied.
func (f FetchConfig) ConnectTimeout() time.Duration {
	return secondsOr(f.ConnectTimeoutSeconds, 10*time.Second)
}

// Timeout returns the per-request timeout with its default applied.
func (f FetchConfig) Timeout() time.Duration {
	return secondsOr(f.TimeoutSeconds, 120*time.Second)
}

// Delay returns the inter-request delay with its default applied.
func (f FetchConfig) Delay() time.Duration {
	if f.DelayMillis <= 0 {
		return time.Second
	}
	return time.Duration(f.DelayMillis) * time.Millisecond
}

func secondsOr(s int, def time.Duration) time.Duration {
	if s <= 0 {
		return def
	}
	return time.Duration(s) * time.Second
}

// DatabaseConfig selects the run-history store. This uses a tagged union
// pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// EncryptionConfig holds the age key pair used for snapshot encryption.
// Type "none" stores snapshots in plaintext.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// NotifyConfig selects the completion notifier.
type NotifyConfig struct {
	Type    string   `toml:"type"` // "none" (default) or "sendmail"
	Command []string `toml:"command,omitempty"`
	From    string   `toml:"from,omitempty"`
	To      string   `toml:"to,omitempty"`
}

// SourceConfig describes one remote collection to sync. This uses a tagged
// union pattern - the Type field determines which other fields are relevant.
type SourceConfig struct {
	Type string `toml:"type"` // "github" or "paymo"
	Name string `toml:"name"`

	// Token is the API credential. TokenEnv names an environment variable
	// that takes precedence, keeping the secret out of the config file.
	Token    string `toml:"token,omitempty"`
	TokenEnv string `toml:"token_env,omitempty"`

	// GitHub-specific fields (only used when Type == "github")
	Owner        string `toml:"owner,omitempty"` // empty = authenticated user
	IncludeForks bool   `toml:"include_forks,omitempty"`
	APIBase      string `toml:"api_base,omitempty"`

	// Paymo-specific fields (only used when Type == "paymo")
	Endpoints []string `toml:"endpoints,omitempty"`
}

// Credential resolves the source's API token, environment first.
func (s SourceConfig) Credential() string {
	if s.TokenEnv != "" {
		if v := os.Getenv(s.TokenEnv); v != "" {
			return v
		}
	}
	return s.Token
}

// NewConfig creates a new Config with the provided values and defaults for
// every derived path.
func NewConfig(hostID, baseDir, archiveDir string) *Config {
	return &Config{
		HostID:     hostID,
		BaseDir:    baseDir,
		ArchiveDir: archiveDir,
		LockPath:   filepath.Join(baseDir, "hoard.lock"),
		Log: LogConfig{
			Dir:        filepath.Join(baseDir, "log"),
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 90,
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "hoard.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "hoard.key"),
		},
		Notify:    NotifyConfig{Type: "none"},
		Retention: "snapshot",
	}
}

// Validate checks the invariants that must hold before a run starts.
// Violations are precondition errors: the run aborts before any fetch.
func (c *Config) Validate() error {
	if c.ArchiveDir == "" {
		return fmt.Errorf("archive_dir must be set")
	}
	if c.LockPath == "" {
		return fmt.Errorf("lock_path must be set")
	}
	if c.Retention != "" && c.Retention != "snapshot" && c.Retention != "append" {
		return fmt.Errorf("retention must be \"snapshot\" or \"append\", got %q", c.Retention)
	}
	if c.Retention == "append" && c.Encryption.Type != "" && c.Encryption.Type != "none" {
		return fmt.Errorf("append retention cannot be combined with snapshot encryption")
	}

	seen := make(map[string]bool)
	for _, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("every source needs a name")
		}
		if seen[src.Name] {
			return fmt.Errorf("duplicate source name: %s", src.Name)
		}
		seen[src.Name] = true

		switch src.Type {
		case "github":
		case "paymo":
			if len(src.Endpoints) == 0 {
				return fmt.Errorf("paymo source %s has no endpoints", src.Name)
			}
		default:
			return fmt.Errorf("source %s has unknown type %q", src.Name, src.Type)
		}
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided
// Config. Refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
