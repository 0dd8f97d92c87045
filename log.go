package mgit

import (
	"github.com/gopherforge/mgit/ginternals"
	"github.com/gopherforge/mgit/ginternals/object"
	"golang.org/x/xerrors"
)

// CommitLogEntry is a single commit returned by Log
type CommitLogEntry struct {
	ID     ginternals.Oid
	Commit *object.Commit
}

// Log walks the ancestry of the commit name resolves to, depth-first,
// and returns every commit reached exactly once. Merge commits are
// followed through all their parents
func (r *Repository) Log(name string) ([]CommitLogEntry, error) {
	start, err := r.ObjectFind(name, object.TypeCommit, true)
	if err != nil {
		return nil, err
	}

	var entries []CommitLogEntry
	seen := map[ginternals.Oid]struct{}{}

	var walk func(id ginternals.Oid) error
	walk = func(id ginternals.Oid) error {
		if _, ok := seen[id]; ok {
			return nil
		}
		seen[id] = struct{}{}

		o, err := r.backend.Object(id)
		if err != nil {
			return xerrors.Errorf("could not load commit %s: %w", id.String(), err)
		}
		commit, err := o.AsCommit()
		if err != nil {
			return xerrors.Errorf("could not parse commit %s: %w", id.String(), err)
		}

		entries = append(entries, CommitLogEntry{ID: id, Commit: commit})

		for _, parentID := range commit.ParentIDs() {
			if err := walk(parentID); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(start); err != nil {
		return nil, err
	}
	return entries, nil
}
