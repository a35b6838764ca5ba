package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"hoard-go/internal/database/migrations"
	"hoard-go/internal/hoard"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the RunStore interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ hoard.RunStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the run-history database and brings its
// schema up to date. path can be a file path or ":memory:".
//
// Migrations run automatically on open: a cron invocation must be able to
// start unattended after a binary upgrade.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating run database: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite database connection with
// appropriate PRAGMAs. path can be a file path or ":memory:".
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; the pool must not open a
	// second one.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Foreign keys default to OFF in SQLite for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// CreateRun records the start of a run.
func (s *SQLiteStore) CreateRun(runID string, startedAt time.Time) (*hoard.RunRecord, error) {
	res, err := s.db.Exec(
		`INSERT INTO runs (run_id, started_at, status) VALUES (?, ?, 'running')`,
		runID, startedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting run id: %w", err)
	}

	return &hoard.RunRecord{
		ID:        id,
		RunID:     runID,
		StartedAt: startedAt,
		Status:    "running",
	}, nil
}

// FinishRun finalizes a run with the counts and status from the summary.
func (s *SQLiteStore) FinishRun(id int64, sum *hoard.RunSummary) error {
	_, err := s.db.Exec(
		`UPDATE runs
		    SET finished_at = ?, status = ?, total = ?, created = ?, updated = ?,
		        skipped = ?, failed = ?, failed_names = ?, archive_bytes = ?
		  WHERE id = ?`,
		sum.FinishedAt.UTC(), string(sum.Status()), sum.Total(), sum.Created,
		sum.Updated, sum.Skipped, sum.Failed, strings.Join(sum.FailedNames, "\n"),
		sum.ArchiveBytes, id,
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(limit int) ([]*hoard.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, started_at, finished_at, status, total, created,
		        updated, skipped, failed, failed_names, archive_bytes
		   FROM runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*hoard.RunRecord
	for rows.Next() {
		var r hoard.RunRecord
		if err := rows.Scan(
			&r.ID, &r.RunID, &r.StartedAt, &r.FinishedAt, &r.Status, &r.Total,
			&r.Created, &r.Updated, &r.Skipped, &r.Failed, &r.FailedNames,
			&r.ArchiveBytes,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// CheckMigrations verifies that the database schema is up to date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}
