// Package archive persists fetched items to durable storage on the NAS:
// working-copy trees kept current by clone and fast-forward (mirror mode),
// and timestamped snapshot records (snapshot mode).
//
// Known limitation: a termination signal during a mirror update can leave
// that one working copy partially updated; the next scheduled run's
// fast-forward repairs it. Snapshot writes rename a fully written temp file
// into place and are signal-safe.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"hoard-go/internal/hoard"
)

// ErrNotFastForward is returned when a working copy cannot be advanced to
// the remote state without a merge commit or history rewrite. The existing
// copy is left untouched; this is a per-item failure, not a run abort.
var ErrNotFastForward = errors.New("working copy is not fast-forwardable")

// MirrorArchive keeps one checked-out working copy per repository under
// root. Create is a full clone; update is a fast-forward pull that never
// rewrites local history. Working copies are never deleted automatically.
type MirrorArchive struct {
	root string
	auth *githttp.BasicAuth // nil for anonymous remotes
}

var _ hoard.Archiver = (*MirrorArchive)(nil)

// NewMirrorArchive creates a mirror archive rooted at the given path.
// When token is non-empty it is sent as the password of a token basic-auth
// pair, the scheme the GitHub remote expects.
func NewMirrorArchive(root, token string) (*MirrorArchive, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating mirror root: %w", err)
	}

	a := &MirrorArchive{root: root}
	if token != "" {
		a.auth = &githttp.BasicAuth{Username: "token", Password: token}
	}
	return a, nil
}

// Exists reports whether a working copy for name is present and openable as
// a repository. A directory left behind by an interrupted clone does not
// count: it is cleared and re-cloned on the next Store.
func (a *MirrorArchive) Exists(name string) bool {
	_, err := git.PlainOpen(a.dir(name))
	return err == nil
}

// Store clones the item's remote when no working copy exists, otherwise
// fast-forwards the existing copy in place.
func (a *MirrorArchive) Store(ctx context.Context, item hoard.RemoteItem) error {
	if a.Exists(item.Name) {
		return a.fastForward(ctx, item)
	}
	return a.clone(ctx, item)
}

func (a *MirrorArchive) clone(ctx context.Context, item hoard.RemoteItem) error {
	dir := a.dir(item.Name)

	// A half-cloned directory from a crashed run would block PlainClone.
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing stale clone directory: %w", err)
	}

	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:  item.URL,
		Auth: a.authMethod(),
	})
	if err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("cloning %s: %w", item.URL, err)
	}
	return nil
}

func (a *MirrorArchive) fastForward(ctx context.Context, item hoard.RemoteItem) error {
	repo, err := git.PlainOpen(a.dir(item.Name))
	if err != nil {
		return fmt.Errorf("opening working copy: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	err = wt.PullContext(ctx, &git.PullOptions{Auth: a.authMethod()})
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
		return nil
	case errors.Is(err, git.ErrNonFastForwardUpdate):
		return fmt.Errorf("updating %s: %w", item.Name, ErrNotFastForward)
	default:
		return fmt.Errorf("updating %s: %w", item.Name, err)
	}
}

func (a *MirrorArchive) dir(name string) string {
	return filepath.Join(a.root, hoard.SanitizeName(name))
}

// authMethod widens the stored auth to the interface the clone and pull
// options want while keeping a typed nil out of it.
func (a *MirrorArchive) authMethod() transport.AuthMethod {
	if a.auth == nil {
		return nil
	}
	return a.auth
}
