package testutil

import (
	"context"
	"fmt"

	"hoard-go/internal/hoard"
)

// MemoryArchive is an in-memory hoard.Archiver. Names in Existing are
// reported as already archived; names in Fail make Store return an error.
type MemoryArchive struct {
	Existing map[string]bool
	Fail     map[string]bool

	// Stored lists the items Store accepted, in order.
	Stored []hoard.RemoteItem
}

var _ hoard.Archiver = (*MemoryArchive)(nil)

// NewMemoryArchive creates an empty MemoryArchive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		Existing: make(map[string]bool),
		Fail:     make(map[string]bool),
	}
}

func (a *MemoryArchive) Exists(name string) bool {
	return a.Existing[name]
}

func (a *MemoryArchive) Store(_ context.Context, item hoard.RemoteItem) error {
	if a.Fail[item.Name] {
		return fmt.Errorf("scripted store failure for %s", item.Name)
	}
	a.Stored = append(a.Stored, item)
	a.Existing[item.Name] = true
	return nil
}
