package mgit

import (
	"os"
	"path/filepath"

	"github.com/gopherforge/mgit/ginternals"
	"github.com/gopherforge/mgit/ginternals/index"
	"github.com/gopherforge/mgit/ginternals/object"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// TreeToDict flattens a tree (resolved from ref, which may be HEAD, a
// branch, a tag, or a commit/tree sha) down to a path -> blob Oid map.
// Subtrees are recursed into and contribute their entries under their
// own path prefix. An empty map is returned if ref doesn't resolve to
// anything
func (r *Repository) TreeToDict(ref string) (map[string]ginternals.Oid, error) {
	out := map[string]ginternals.Oid{}
	treeID, err := r.ObjectFind(ref, object.TypeTree, true)
	if err != nil {
		if xerrors.Is(err, ErrReferenceNotFound) {
			return out, nil
		}
		return nil, xerrors.Errorf("could not resolve %s to a tree: %w", ref, err)
	}
	if err := r.treeToDict(treeID, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) treeToDict(treeID ginternals.Oid, prefix string, out map[string]ginternals.Oid) error {
	o, err := r.backend.Object(treeID)
	if err != nil {
		return xerrors.Errorf("could not load tree %s: %w", treeID.String(), err)
	}
	tree, err := o.AsTree()
	if err != nil {
		return xerrors.Errorf("could not parse tree %s: %w", treeID.String(), err)
	}

	for _, entry := range tree.Entries() {
		fullPath := filepath.Join(prefix, entry.Path)
		if entry.Mode == object.ModeDirectory {
			if err := r.treeToDict(entry.ID, fullPath, out); err != nil {
				return err
			}
			continue
		}
		out[fullPath] = entry.ID
	}
	return nil
}

// EntryStatus describes how a single path differs between two states
type EntryStatus struct {
	Path string
	// Kind is one of "added", "modified", or "deleted"
	Kind string
}

// DiffHeadIndex compares HEAD's tree against the staged index and
// reports what's staged for commit
func (r *Repository) DiffHeadIndex(idx *index.Index) ([]EntryStatus, error) {
	head, err := r.TreeToDict(ginternals.Head)
	if err != nil {
		return nil, err
	}

	var changes []EntryStatus
	for _, e := range idx.Entries {
		if headID, tracked := head[e.Path]; tracked {
			if headID != e.ID {
				changes = append(changes, EntryStatus{Path: e.Path, Kind: "modified"})
			}
			delete(head, e.Path)
		} else {
			changes = append(changes, EntryStatus{Path: e.Path, Kind: "added"})
		}
	}
	for path := range head {
		changes = append(changes, EntryStatus{Path: path, Kind: "deleted"})
	}
	return changes, nil
}

// WorktreeStatus is the result of comparing the index against the
// working tree
type WorktreeStatus struct {
	Changed   []EntryStatus
	Untracked []string
}

// DiffIndexWorktree compares the staged index against the working
// tree on disk, detecting modified and deleted paths, as well as files
// present on disk but not tracked by the index
func (r *Repository) DiffIndexWorktree(idx *index.Index) (*WorktreeStatus, error) {
	if r.IsBare() {
		return nil, xerrors.New("cannot diff the worktree of a bare repository")
	}

	tracked := map[string]struct{}{}
	status := &WorktreeStatus{}

	for _, e := range idx.Entries {
		tracked[e.Path] = struct{}{}
		fullPath := r.AbsPath(e.Path)

		info, err := r.wt.Stat(fullPath)
		if err != nil {
			if os.IsNotExist(err) {
				status.Changed = append(status.Changed, EntryStatus{Path: e.Path, Kind: "deleted"})
				continue
			}
			return nil, xerrors.Errorf("could not stat %s: %w", fullPath, err)
		}

		if info.ModTime().Unix() == e.MTime.Unix() && info.Size() == int64(e.Size) {
			continue
		}

		content, err := afero.ReadFile(r.wt, fullPath)
		if err != nil {
			return nil, xerrors.Errorf("could not read %s: %w", fullPath, err)
		}
		if object.New(object.TypeBlob, content).ID() != e.ID {
			status.Changed = append(status.Changed, EntryStatus{Path: e.Path, Kind: "modified"})
		}
	}

	err := afero.Walk(r.wt, r.WorkTreePath(), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path == r.GitDirPath() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(r.WorkTreePath(), path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if _, ok := tracked[rel]; !ok {
			status.Untracked = append(status.Untracked, rel)
		}
		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("could not walk working tree: %w", err)
	}

	return status, nil
}
