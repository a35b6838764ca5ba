// Package report renders run summaries into the plain-text per-run report
// and measures the archive they describe.
package report

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"hoard-go/internal/hoard"
)

// Writer persists one report file per run, named with the run's start
// timestamp, into reportDir. ArchiveSize walks archiveDir.
type Writer struct {
	archiveDir string
	reportDir  string
}

var _ hoard.ReportSink = (*Writer)(nil)

// NewWriter creates a report writer.
func NewWriter(archiveDir, reportDir string) *Writer {
	return &Writer{archiveDir: archiveDir, reportDir: reportDir}
}

// ArchiveSize returns the total size in bytes of all regular files under the
// archive directory. A missing archive directory counts as zero.
func (w *Writer) ArchiveSize() (int64, error) {
	var total int64
	err := filepath.WalkDir(w.archiveDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("walking archive directory: %w", err)
	}
	return total, nil
}

// Write renders the summary and persists it atomically as
// run-<timestamp>.txt. The rendered body is returned for notification use.
func (w *Writer) Write(sum *hoard.RunSummary) (string, string, error) {
	body := Render(sum)

	if err := os.MkdirAll(w.reportDir, 0755); err != nil {
		return "", "", fmt.Errorf("creating report directory: %w", err)
	}

	name := "run-" + sum.StartedAt.UTC().Format("20060102T150405Z") + ".txt"
	path := filepath.Join(w.reportDir, name)

	tmp, err := os.CreateTemp(w.reportDir, ".tmp-report-*")
	if err != nil {
		return "", "", fmt.Errorf("creating temp report: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", "", fmt.Errorf("writing report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", "", fmt.Errorf("closing report: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", "", fmt.Errorf("placing report: %w", err)
	}

	return path, body, nil
}

// Latest returns the contents of the most recent report file.
func (w *Writer) Latest() (string, error) {
	entries, err := os.ReadDir(w.reportDir)
	if err != nil {
		return "", fmt.Errorf("reading report directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "run-") && strings.HasSuffix(e.Name(), ".txt") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no run reports in %s", w.reportDir)
	}

	// Timestamped names sort chronologically.
	sort.Strings(names)
	data, err := os.ReadFile(filepath.Join(w.reportDir, names[len(names)-1]))
	if err != nil {
		return "", fmt.Errorf("reading latest report: %w", err)
	}
	return string(data), nil
}

// Render formats a RunSummary as the plain-text run report.
func Render(sum *hoard.RunSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "hoard sync run %s\n", sum.RunID)
	fmt.Fprintf(&b, "started:  %s\n", sum.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "finished: %s\n", sum.FinishedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "duration: %s\n", sum.Duration().Truncate(time.Millisecond))
	fmt.Fprintf(&b, "status:   %s\n", sum.Status())
	b.WriteString("\n")
	fmt.Fprintf(&b, "items:   %d\n", sum.Total())
	fmt.Fprintf(&b, "created: %d\n", sum.Created)
	fmt.Fprintf(&b, "updated: %d\n", sum.Updated)
	fmt.Fprintf(&b, "skipped: %d\n", sum.Skipped)
	fmt.Fprintf(&b, "failed:  %d\n", sum.Failed)

	if len(sum.Sources) > 0 {
		b.WriteString("\nper source:\n")
		for _, t := range sum.Sources {
			if t.FetchFailed {
				fmt.Fprintf(&b, "  %s: fetch failed\n", t.Source)
				continue
			}
			fmt.Fprintf(&b, "  %s: %d created, %d updated, %d skipped, %d failed\n",
				t.Source, t.Created, t.Updated, t.Skipped, t.Failed)
		}
	}

	if len(sum.FailedNames) > 0 {
		b.WriteString("\nfailed items:\n")
		for _, name := range sum.FailedNames {
			fmt.Fprintf(&b, "  - %s\n", name)
		}
	}
	if len(sum.FetchFailures) > 0 {
		b.WriteString("\nfetch failures:\n")
		for _, src := range sum.FetchFailures {
			fmt.Fprintf(&b, "  - %s\n", src)
		}
	}

	fmt.Fprintf(&b, "\narchive size: %s\n", byteCount(sum.ArchiveBytes))
	return b.String()
}

// byteCount renders a size in binary units.
func byteCount(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
