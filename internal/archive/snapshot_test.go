package archive_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hoard-go/internal/archive"
	"hoard-go/internal/encryption"
	"hoard-go/internal/hoard"
)

var takenAt = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func snapshotItem(name string, payload string) hoard.RemoteItem {
	return hoard.RemoteItem{
		Name:    name,
		URL:     "https://example.com/api/" + name,
		Payload: json.RawMessage(payload),
	}
}

func TestNewSnapshotArchive(t *testing.T) {
	t.Run("rejects an unknown retention policy", func(t *testing.T) {
		_, err := archive.NewSnapshotArchive(t.TempDir(), "forever", nil, "run-1", takenAt)
		if err == nil {
			t.Fatal("NewSnapshotArchive() expected error for unknown retention")
		}
	})

	t.Run("rejects append retention with encryption", func(t *testing.T) {
		_, err := archive.NewSnapshotArchive(t.TempDir(), archive.RetentionAppend, encryption.NewTestEncryptor(), "run-1", takenAt)
		if err == nil {
			t.Fatal("NewSnapshotArchive() expected error for append with encryption")
		}
	})
}

func TestSnapshotArchive_SnapshotRetention(t *testing.T) {
	t.Run("writes one self-describing record per endpoint", func(t *testing.T) {
		root := t.TempDir()
		a, err := archive.NewSnapshotArchive(root, archive.RetentionSnapshot, nil, "run-1", takenAt)
		if err != nil {
			t.Fatalf("NewSnapshotArchive() error = %v", err)
		}

		if a.Exists("projects") {
			t.Error("Exists() = true before any write")
		}
		if err := a.Store(context.Background(), snapshotItem("projects", `{"projects":[1,2]}`)); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
		if !a.Exists("projects") {
			t.Error("Exists() = false after write")
		}

		data, err := os.ReadFile(filepath.Join(root, "projects.json"))
		if err != nil {
			t.Fatalf("reading snapshot: %v", err)
		}

		var rec archive.SnapshotRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			t.Fatalf("snapshot is not a valid record: %v", err)
		}
		if rec.RunID != "run-1" {
			t.Errorf("RunID = %q, want run-1", rec.RunID)
		}
		if !rec.TakenAt.Equal(takenAt) {
			t.Errorf("TakenAt = %s, want %s", rec.TakenAt, takenAt)
		}
		if rec.Endpoint != "https://example.com/api/projects" {
			t.Errorf("Endpoint = %q, want source URL", rec.Endpoint)
		}
		if !bytes.Contains(rec.Data, []byte(`[1,2]`)) {
			t.Errorf("Data = %s, want original payload", rec.Data)
		}
	})

	t.Run("overwrites the previous run's snapshot", func(t *testing.T) {
		root := t.TempDir()

		first, _ := archive.NewSnapshotArchive(root, archive.RetentionSnapshot, nil, "run-1", takenAt)
		if err := first.Store(context.Background(), snapshotItem("projects", `{"v":1}`)); err != nil {
			t.Fatalf("first Store() error = %v", err)
		}

		second, _ := archive.NewSnapshotArchive(root, archive.RetentionSnapshot, nil, "run-2", takenAt.Add(time.Hour))
		if err := second.Store(context.Background(), snapshotItem("projects", `{"v":2}`)); err != nil {
			t.Fatalf("second Store() error = %v", err)
		}

		data, err := os.ReadFile(filepath.Join(root, "projects.json"))
		if err != nil {
			t.Fatalf("reading snapshot: %v", err)
		}
		var rec archive.SnapshotRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			t.Fatalf("snapshot is not a valid record: %v", err)
		}
		if rec.RunID != "run-2" {
			t.Errorf("RunID = %q, want run-2", rec.RunID)
		}

		entries, _ := os.ReadDir(root)
		if len(entries) != 1 {
			t.Errorf("archive holds %d files, want exactly 1", len(entries))
		}
	})

	t.Run("sanitizes the endpoint name on disk", func(t *testing.T) {
		root := t.TempDir()
		a, _ := archive.NewSnapshotArchive(root, archive.RetentionSnapshot, nil, "run-1", takenAt)

		if err := a.Store(context.Background(), snapshotItem("company/info", `{}`)); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(root, "company_info.json")); err != nil {
			t.Errorf("expected sanitized filename: %v", err)
		}
	})
}

func TestSnapshotArchive_AppendRetention(t *testing.T) {
	root := t.TempDir()

	first, err := archive.NewSnapshotArchive(root, archive.RetentionAppend, nil, "run-1", takenAt)
	if err != nil {
		t.Fatalf("NewSnapshotArchive() error = %v", err)
	}
	if err := first.Store(context.Background(), snapshotItem("entries", `{"n":1}`)); err != nil {
		t.Fatalf("first Store() error = %v", err)
	}

	second, _ := archive.NewSnapshotArchive(root, archive.RetentionAppend, nil, "run-2", takenAt.Add(time.Hour))
	if err := second.Store(context.Background(), snapshotItem("entries", `{"n":2}`)); err != nil {
		t.Fatalf("second Store() error = %v", err)
	}

	if !second.Exists("entries") {
		t.Error("Exists() = false for an endpoint with history")
	}

	data, err := os.ReadFile(filepath.Join(root, "entries.jsonl"))
	if err != nil {
		t.Fatalf("reading history file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("history holds %d records, want 2", len(lines))
	}
	for i, line := range lines {
		var rec archive.SnapshotRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("record %d is not valid JSON: %v", i, err)
		}
	}

	var last archive.SnapshotRecord
	json.Unmarshal([]byte(lines[1]), &last)
	if last.RunID != "run-2" {
		t.Errorf("last record RunID = %q, want run-2", last.RunID)
	}
}

func TestSnapshotArchive_Encryption(t *testing.T) {
	t.Run("stores an encrypted snapshot", func(t *testing.T) {
		root := t.TempDir()
		enc := encryption.NewTestEncryptor()
		a, err := archive.NewSnapshotArchive(root, archive.RetentionSnapshot, enc, "run-1", takenAt)
		if err != nil {
			t.Fatalf("NewSnapshotArchive() error = %v", err)
		}

		if err := a.Store(context.Background(), snapshotItem("projects", `{"secret":true}`)); err != nil {
			t.Fatalf("Store() error = %v", err)
		}

		if !a.Exists("projects") {
			t.Error("Exists() = false for encrypted snapshot")
		}
		if _, err := os.Stat(filepath.Join(root, "projects.json")); !os.IsNotExist(err) {
			t.Error("plaintext snapshot present alongside encrypted one")
		}

		data, err := os.ReadFile(filepath.Join(root, "projects.json.age"))
		if err != nil {
			t.Fatalf("reading encrypted snapshot: %v", err)
		}
		if !bytes.HasPrefix(data, []byte("HOARDENC")) {
			t.Error("snapshot was not passed through the encryptor")
		}
	})

	t.Run("clears the stale plaintext variant on first encrypted write", func(t *testing.T) {
		root := t.TempDir()

		plain, _ := archive.NewSnapshotArchive(root, archive.RetentionSnapshot, nil, "run-1", takenAt)
		if err := plain.Store(context.Background(), snapshotItem("projects", `{"v":1}`)); err != nil {
			t.Fatalf("plaintext Store() error = %v", err)
		}

		enc, _ := archive.NewSnapshotArchive(root, archive.RetentionSnapshot, encryption.NewTestEncryptor(), "run-2", takenAt)
		if err := enc.Store(context.Background(), snapshotItem("projects", `{"v":2}`)); err != nil {
			t.Fatalf("encrypted Store() error = %v", err)
		}

		if _, err := os.Stat(filepath.Join(root, "projects.json")); !os.IsNotExist(err) {
			t.Error("stale plaintext snapshot was not cleared")
		}
		if _, err := os.Stat(filepath.Join(root, "projects.json.age")); err != nil {
			t.Errorf("encrypted snapshot missing: %v", err)
		}
	})
}

func TestReadSnapshotFile(t *testing.T) {
	t.Run("reads a plaintext snapshot", func(t *testing.T) {
		root := t.TempDir()
		a, _ := archive.NewSnapshotArchive(root, archive.RetentionSnapshot, nil, "run-1", takenAt)
		if err := a.Store(context.Background(), snapshotItem("projects", `{"v":1}`)); err != nil {
			t.Fatalf("Store() error = %v", err)
		}

		data, err := archive.ReadSnapshotFile(root, "projects", nil, "")
		if err != nil {
			t.Fatalf("ReadSnapshotFile() error = %v", err)
		}
		var rec archive.SnapshotRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			t.Fatalf("returned data is not a record: %v", err)
		}
	})

	t.Run("decrypts an encrypted snapshot", func(t *testing.T) {
		root := t.TempDir()
		enc := encryption.NewTestEncryptor()
		a, _ := archive.NewSnapshotArchive(root, archive.RetentionSnapshot, enc, "run-1", takenAt)
		if err := a.Store(context.Background(), snapshotItem("projects", `{"v":1}`)); err != nil {
			t.Fatalf("Store() error = %v", err)
		}

		data, err := archive.ReadSnapshotFile(root, "projects", enc, "passphrase")
		if err != nil {
			t.Fatalf("ReadSnapshotFile() error = %v", err)
		}
		var rec archive.SnapshotRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			t.Fatalf("decrypted data is not a record: %v", err)
		}
		if rec.RunID != "run-1" {
			t.Errorf("RunID = %q, want run-1", rec.RunID)
		}
	})

	t.Run("fails for a missing endpoint", func(t *testing.T) {
		if _, err := archive.ReadSnapshotFile(t.TempDir(), "nothing", nil, ""); err == nil {
			t.Fatal("ReadSnapshotFile() expected error for a missing snapshot")
		}
	})
}
