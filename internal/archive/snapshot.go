package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"hoard-go/internal/hoard"
)

// Retention policies for snapshot archives. The source history had two
// competing behaviors; the policy is an explicit configuration choice here.
const (
	// RetentionSnapshot keeps exactly one file per endpoint, overwritten
	// each run. Cross-run history lives in the timestamped run reports.
	RetentionSnapshot = "snapshot"
	// RetentionAppend grows a per-endpoint history file monotonically, one
	// record per run. Never truncated by normal operation.
	RetentionAppend = "append"
)

// SnapshotRecord wraps one endpoint payload with the run metadata that makes
// every archived batch self-describing: downstream consumers never need
// external context to interpret a file.
type SnapshotRecord struct {
	RunID    string          `json:"run_id"`
	TakenAt  time.Time       `json:"taken_at"`
	Endpoint string          `json:"endpoint"`
	Data     json.RawMessage `json:"data"`
}

// SnapshotArchive persists endpoint payloads under root. Writes go to a
// temp file and are renamed into place, so a crash mid-write can never leave
// a half-written file where a snapshot should be. Written data is re-parsed
// before the write is declared good.
type SnapshotArchive struct {
	root      string
	retention string
	encryptor hoard.Encryptor // nil when snapshots are stored in plaintext
	runID     string
	takenAt   time.Time
}

var _ hoard.Archiver = (*SnapshotArchive)(nil)

// NewSnapshotArchive creates a snapshot archive for one run. Every record it
// writes is tagged with runID and takenAt. Encryption requires the snapshot
// retention policy: an age stream cannot be appended to.
func NewSnapshotArchive(root, retention string, encryptor hoard.Encryptor, runID string, takenAt time.Time) (*SnapshotArchive, error) {
	switch retention {
	case RetentionSnapshot, RetentionAppend:
	default:
		return nil, fmt.Errorf("unknown retention policy: %q", retention)
	}
	if encryptor != nil && retention == RetentionAppend {
		return nil, fmt.Errorf("append retention cannot be combined with encryption")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating snapshot root: %w", err)
	}

	return &SnapshotArchive{
		root:      root,
		retention: retention,
		encryptor: encryptor,
		runID:     runID,
		takenAt:   takenAt,
	}, nil
}

// Exists reports whether any archived record for this endpoint is present,
// regardless of retention policy or encryption state.
func (a *SnapshotArchive) Exists(name string) bool {
	for _, p := range a.candidatePaths(name) {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

// Store persists the item payload wrapped in a SnapshotRecord.
func (a *SnapshotArchive) Store(_ context.Context, item hoard.RemoteItem) error {
	rec := SnapshotRecord{
		RunID:    a.runID,
		TakenAt:  a.takenAt.UTC(),
		Endpoint: item.URL,
		Data:     item.Payload,
	}

	data, err := json.MarshalIndent(&rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot record: %w", err)
	}

	if a.retention == RetentionAppend {
		return a.appendRecord(item.Name, data)
	}
	return a.writeSnapshot(item.Name, data)
}

// writeSnapshot replaces this endpoint's file for the current run. Any
// stale variant left by a retention or encryption config change is cleared
// first, so exactly one current file per endpoint survives.
func (a *SnapshotArchive) writeSnapshot(name string, data []byte) error {
	dest := a.snapshotPath(name)

	for _, p := range a.candidatePaths(name) {
		if p == dest {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clearing stale snapshot %s: %w", p, err)
		}
	}

	if a.encryptor != nil {
		var buf bytes.Buffer
		if err := a.encryptor.Encrypt(bytes.NewReader(data), &buf); err != nil {
			return fmt.Errorf("encrypting snapshot: %w", err)
		}
		// The plaintext was validated before encryption; the age stream is
		// authenticated, so no post-write re-parse is possible or needed.
		return atomicWrite(dest, buf.Bytes())
	}

	if err := atomicWrite(dest, data); err != nil {
		return err
	}
	return a.validateFile(dest)
}

// appendRecord adds one compact record line to the endpoint's history file
// and re-parses exactly the appended bytes.
func (a *SnapshotArchive) appendRecord(name string, data []byte) error {
	var line bytes.Buffer
	if err := json.Compact(&line, data); err != nil {
		return fmt.Errorf("compacting snapshot record: %w", err)
	}
	line.WriteByte('\n')

	path := a.historyPath(name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening history file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat history file: %w", err)
	}
	offset := info.Size()

	if _, err := f.Write(line.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("appending to history file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing history file: %w", err)
	}

	return a.validateAppended(path, offset, int64(line.Len()))
}

// validateFile re-reads a written snapshot and parses it back into a record.
func (a *SnapshotArchive) validateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("re-reading snapshot for validation: %w", err)
	}
	var rec SnapshotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("validating written snapshot %s: %w", path, err)
	}
	return nil
}

// validateAppended re-reads only the bytes this run appended.
func (a *SnapshotArchive) validateAppended(path string, offset, length int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("re-opening history for validation: %w", err)
	}
	defer f.Close()

	buf := make([]byte, length)
	if _, err := f.ReadAt(buf, offset); err != nil && err != io.EOF {
		return fmt.Errorf("re-reading appended record: %w", err)
	}

	var rec SnapshotRecord
	if err := json.Unmarshal(bytes.TrimSpace(buf), &rec); err != nil {
		return fmt.Errorf("validating appended record in %s: %w", path, err)
	}
	return nil
}

func (a *SnapshotArchive) snapshotPath(name string) string {
	base := hoard.SanitizeName(name) + ".json"
	if a.encryptor != nil {
		base += ".age"
	}
	return filepath.Join(a.root, base)
}

func (a *SnapshotArchive) historyPath(name string) string {
	return filepath.Join(a.root, hoard.SanitizeName(name)+".jsonl")
}

// candidatePaths lists every on-disk form an endpoint's archive can take.
func (a *SnapshotArchive) candidatePaths(name string) []string {
	safe := hoard.SanitizeName(name)
	return []string{
		filepath.Join(a.root, safe+".json"),
		filepath.Join(a.root, safe+".json.age"),
		filepath.Join(a.root, safe+".jsonl"),
	}
}

// ReadSnapshotFile returns the archived record bytes for one endpoint under
// root, whichever on-disk form it takes. Encrypted snapshots are decrypted
// with the given passphrase; append-mode history files are returned whole.
func ReadSnapshotFile(root, endpoint string, encryptor hoard.Encryptor, passphrase string) ([]byte, error) {
	safe := hoard.SanitizeName(endpoint)

	if data, err := os.ReadFile(filepath.Join(root, safe+".json")); err == nil {
		return data, nil
	}
	if data, err := os.ReadFile(filepath.Join(root, safe+".jsonl")); err == nil {
		return data, nil
	}

	encPath := filepath.Join(root, safe+".json.age")
	f, err := os.Open(encPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no archived snapshot for %s under %s", endpoint, root)
		}
		return nil, fmt.Errorf("opening encrypted snapshot: %w", err)
	}
	defer f.Close()

	if encryptor == nil {
		return nil, fmt.Errorf("%s is encrypted but encryption is not configured", encPath)
	}
	var buf bytes.Buffer
	if err := encryptor.Decrypt(passphrase, f, &buf); err != nil {
		return nil, fmt.Errorf("decrypting snapshot %s: %w", encPath, err)
	}
	return buf.Bytes(), nil
}

// atomicWrite writes data to a temp file in the destination directory and
// renames it into place.
func atomicWrite(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("renaming temp file into place: %w", err)
	}
	success = true
	return nil
}
