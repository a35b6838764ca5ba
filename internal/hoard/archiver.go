package hoard

import "context"

// Archiver persists remote items for one source. Implementations cover the
// two archive modes: a working-copy tree kept current by clone/fast-forward
// (mirror), and timestamped snapshot records (snapshot).
type Archiver interface {
	// Exists reports whether a local archive record for name is already
	// present. The sync engine uses this to classify an item as CREATE or
	// UPDATE before calling Store.
	Exists(name string) bool

	// Store materializes the item in the archive: full copy-in when absent,
	// fast-forward (mirror) or overwrite-for-this-run (snapshot) when
	// present. A failed update must leave the existing record in place.
	Store(ctx context.Context, item RemoteItem) error
}
