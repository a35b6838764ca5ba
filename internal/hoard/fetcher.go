package hoard

import "context"

// Fetcher enumerates the remote collection for one configured source.
type Fetcher interface {
	// FetchAll walks the remote collection and returns its items in
	// emission order. The sequence is finite and non-restartable: a fetch
	// pass that aborts (malformed page, non-2xx response, timeout) returns
	// an error and the items gathered so far are discarded by the caller
	// so that a truncated pass is never mistaken for a complete one.
	FetchAll(ctx context.Context) ([]RemoteItem, error)
}
