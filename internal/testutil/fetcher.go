package testutil

import (
	"context"

	"hoard-go/internal/hoard"
)

// ScriptedFetcher returns a fixed item list or a fixed error.
type ScriptedFetcher struct {
	Items []hoard.RemoteItem
	Err   error

	// Calls counts FetchAll invocations.
	Calls int
}

var _ hoard.Fetcher = (*ScriptedFetcher)(nil)

func (f *ScriptedFetcher) FetchAll(_ context.Context) ([]hoard.RemoteItem, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Items, nil
}
