package app

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hoard-go/internal/config"
)

func TestHoardHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&hoardHandler{w: &buf, runID: "run-42"})

	logger.Info("item synced", "source", "github", "item", "repo-1")

	line := strings.TrimSuffix(buf.String(), "\n")
	fields := strings.Split(line, "\t")
	if len(fields) != 6 {
		t.Fatalf("got %d tab-separated fields, want 6: %q", len(fields), line)
	}
	if fields[1] != "INFO" {
		t.Errorf("level field = %q, want INFO", fields[1])
	}
	if fields[2] != "run-42" {
		t.Errorf("run field = %q, want run-42", fields[2])
	}
	if fields[3] != "item synced" {
		t.Errorf("message field = %q, want item synced", fields[3])
	}
	if fields[4] != "source=github" || fields[5] != "item=repo-1" {
		t.Errorf("attr fields = %q %q", fields[4], fields[5])
	}
	if !strings.HasSuffix(fields[0], "Z") {
		t.Errorf("timestamp %q is not UTC", fields[0])
	}
}

func TestHoardHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&hoardHandler{w: &buf, runID: "run-42"})

	logger.With("source", "paymo").Warn("fetch failed", "error", "timeout")

	line := buf.String()
	if !strings.Contains(line, "source=paymo") || !strings.Contains(line, "error=timeout") {
		t.Errorf("pre-set attrs missing from record: %q", line)
	}
	if !strings.Contains(line, "WARN") {
		t.Errorf("level missing from record: %q", line)
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("creates the log directory and file", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "log")

		logger, closer, err := newLogger(config.LogConfig{Dir: dir}, "run-1")
		if err != nil {
			t.Fatalf("newLogger() error = %v", err)
		}
		defer closer.Close()

		logger.Info("starting", "operation", "Sync")

		data, err := os.ReadFile(filepath.Join(dir, "hoard.log"))
		if err != nil {
			t.Fatalf("reading log file: %v", err)
		}
		if !strings.Contains(string(data), "operation=Sync") {
			t.Errorf("log file is missing the record: %q", data)
		}
	})

	t.Run("requires a log dir", func(t *testing.T) {
		if _, _, err := newLogger(config.LogConfig{}, "run-1"); err == nil {
			t.Fatal("newLogger() expected error for empty dir")
		}
	})
}

func TestGetDefaults(t *testing.T) {
	t.Run("environment overrides win", func(t *testing.T) {
		t.Setenv("HOARD_CONFIG_PATH", "/etc/hoard/hoard.toml")
		t.Setenv("HOARD_HOME", "/srv/hoard")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}
		if defaults["config_path"] != "/etc/hoard/hoard.toml" {
			t.Errorf("config_path = %q", defaults["config_path"])
		}
		if defaults["base_dir"] != "/srv/hoard" {
			t.Errorf("base_dir = %q", defaults["base_dir"])
		}
		if defaults["archive_dir"] != "/srv/hoard/archive" {
			t.Errorf("archive_dir = %q", defaults["archive_dir"])
		}
	})

	t.Run("falls back to the home directory", func(t *testing.T) {
		t.Setenv("HOARD_CONFIG_PATH", "")
		t.Setenv("HOARD_HOME", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}
		if !strings.HasSuffix(defaults["config_path"], filepath.Join(".config", "hoard.toml")) {
			t.Errorf("config_path = %q", defaults["config_path"])
		}
		if !strings.HasSuffix(defaults["base_dir"], filepath.Join(".local", "share", "hoard")) {
			t.Errorf("base_dir = %q", defaults["base_dir"])
		}
	})
}
