package hoard

import (
	"database/sql"
	"time"
)

// RunRecord is one persisted sync run.
type RunRecord struct {
	ID           int64
	RunID        string
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	Status       string
	Total        int64
	Created      int64
	Updated      int64
	Skipped      int64
	Failed       int64
	FailedNames  string // newline-separated item identifiers
	ArchiveBytes int64
}

// RunStore persists run history.
type RunStore interface {
	// CreateRun records the start of a run. Status is "running" until
	// FinishRun is called.
	CreateRun(runID string, startedAt time.Time) (*RunRecord, error)

	// FinishRun finalizes a run with the counts and status from the summary.
	FinishRun(id int64, summary *RunSummary) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*RunRecord, error)

	// CheckMigrations verifies that the store schema is up to date.
	CheckMigrations() error

	// Close closes the underlying database connection.
	Close() error
}
