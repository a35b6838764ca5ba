package testutil

import (
	"fmt"
	"time"

	"hoard-go/internal/hoard"
)

// MemoryStore is an in-memory hoard.RunStore. Set CreateErr to script a
// precondition failure at run start.
type MemoryStore struct {
	Runs      []*hoard.RunRecord
	CreateErr error
	FinishErr error

	nextID int64
}

var _ hoard.RunStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) CreateRun(runID string, startedAt time.Time) (*hoard.RunRecord, error) {
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	s.nextID++
	rec := &hoard.RunRecord{
		ID:        s.nextID,
		RunID:     runID,
		StartedAt: startedAt,
		Status:    "running",
	}
	s.Runs = append(s.Runs, rec)
	return rec, nil
}

func (s *MemoryStore) FinishRun(id int64, sum *hoard.RunSummary) error {
	if s.FinishErr != nil {
		return s.FinishErr
	}
	for _, rec := range s.Runs {
		if rec.ID == id {
			rec.FinishedAt.Valid = true
			rec.FinishedAt.Time = sum.FinishedAt
			rec.Status = string(sum.Status())
			rec.Total = int64(sum.Total())
			rec.Created = int64(sum.Created)
			rec.Updated = int64(sum.Updated)
			rec.Skipped = int64(sum.Skipped)
			rec.Failed = int64(sum.Failed)
			rec.ArchiveBytes = sum.ArchiveBytes
			return nil
		}
	}
	return fmt.Errorf("no run with id %d", id)
}

func (s *MemoryStore) ListRuns(limit int) ([]*hoard.RunRecord, error) {
	out := make([]*hoard.RunRecord, 0, limit)
	for i := len(s.Runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.Runs[i])
	}
	return out, nil
}

func (s *MemoryStore) CheckMigrations() error { return nil }

func (s *MemoryStore) Close() error { return nil }
