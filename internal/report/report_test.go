package report_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hoard-go/internal/hoard"
	"hoard-go/internal/report"
)

func sampleSummary() *hoard.RunSummary {
	start := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	sum := hoard.NewRunSummary("run-abc", start)
	sum.Record("gh", "repo-1", hoard.OutcomeCreated)
	sum.Record("gh", "repo-2", hoard.OutcomeUpdated)
	sum.Record("gh", "fork", hoard.OutcomeSkipped)
	sum.Record("paymo/clients", "broken", hoard.OutcomeFailed)
	sum.RecordFetchFailure("paymo/projects")
	sum.FinishedAt = start.Add(3 * time.Minute)
	sum.ArchiveBytes = 5 * 1024 * 1024
	return sum
}

func TestWriter_ArchiveSize(t *testing.T) {
	t.Run("sums regular files recursively", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.MkdirAll(filepath.Join(dir, "mirror", "repo"), 0755); err != nil {
			t.Fatal(err)
		}
		os.WriteFile(filepath.Join(dir, "a.json"), make([]byte, 100), 0644)
		os.WriteFile(filepath.Join(dir, "mirror", "repo", "file"), make([]byte, 50), 0644)

		w := report.NewWriter(dir, t.TempDir())
		size, err := w.ArchiveSize()
		if err != nil {
			t.Fatalf("ArchiveSize() error = %v", err)
		}
		if size != 150 {
			t.Errorf("ArchiveSize() = %d, want 150", size)
		}
	})

	t.Run("a missing archive directory counts as zero", func(t *testing.T) {
		w := report.NewWriter(filepath.Join(t.TempDir(), "never-created"), t.TempDir())
		size, err := w.ArchiveSize()
		if err != nil {
			t.Fatalf("ArchiveSize() error = %v", err)
		}
		if size != 0 {
			t.Errorf("ArchiveSize() = %d, want 0", size)
		}
	})
}

func TestWriter_Write(t *testing.T) {
	reportDir := filepath.Join(t.TempDir(), "reports")
	w := report.NewWriter(t.TempDir(), reportDir)

	path, body, err := w.Write(sampleSummary())
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if filepath.Base(path) != "run-20240115T103000Z.txt" {
		t.Errorf("report name = %s, want run-20240115T103000Z.txt", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if string(data) != body {
		t.Error("returned body differs from the written report")
	}
}

func TestWriter_Latest(t *testing.T) {
	t.Run("returns the newest report", func(t *testing.T) {
		reportDir := filepath.Join(t.TempDir(), "reports")
		w := report.NewWriter(t.TempDir(), reportDir)

		older := sampleSummary()
		if _, _, err := w.Write(older); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		newer := sampleSummary()
		newer.RunID = "run-later"
		newer.StartedAt = newer.StartedAt.Add(24 * time.Hour)
		newer.FinishedAt = newer.FinishedAt.Add(24 * time.Hour)
		if _, _, err := w.Write(newer); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		got, err := w.Latest()
		if err != nil {
			t.Fatalf("Latest() error = %v", err)
		}
		if !strings.Contains(got, "run-later") {
			t.Errorf("Latest() returned the older report:\n%s", got)
		}
	})

	t.Run("fails when no reports exist", func(t *testing.T) {
		w := report.NewWriter(t.TempDir(), t.TempDir())
		if _, err := w.Latest(); err == nil {
			t.Fatal("Latest() expected error for an empty report directory")
		}
	})
}

func TestRender(t *testing.T) {
	body := report.Render(sampleSummary())

	for _, want := range []string{
		"run-abc",
		"status:   partial-success",
		"created: 1",
		"updated: 1",
		"skipped: 1",
		"failed:  1",
		"per source:",
		"gh: 1 created, 1 updated, 1 skipped, 0 failed",
		"paymo/clients: 0 created, 0 updated, 0 skipped, 1 failed",
		"paymo/projects: fetch failed",
		"- broken",
		"- paymo/projects",
		"5.0 MiB",
		"duration: 3m0s",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("report is missing %q:\n%s", want, body)
		}
	}
}
