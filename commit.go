package mgit

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/gopherforge/mgit/ginternals"
	"github.com/gopherforge/mgit/ginternals/index"
	"github.com/gopherforge/mgit/ginternals/object"
	"golang.org/x/xerrors"
)

// treeFromIndexEntry is either a staged file (backed by an index
// entry) or a subtree built from a previous pass (backed by a name and
// the Oid of the tree object already written for it)
type treeFromIndexEntry struct {
	name  string
	id    ginternals.Oid
	entry *index.Entry
}

// TreeFromIndex builds and persists the tree objects describing the
// directory structure staged in idx, and returns the Oid of the
// resulting root tree
func (r *Repository) TreeFromIndex(idx *index.Index) (ginternals.Oid, error) {
	contents := map[string][]treeFromIndexEntry{"": nil}

	for i := range idx.Entries {
		e := &idx.Entries[i]
		dir := filepath.Dir(e.Path)
		if dir == "." {
			dir = ""
		}
		for key := dir; key != ""; key = parentDir(key) {
			if _, ok := contents[key]; !ok {
				contents[key] = nil
			}
		}
		contents[dir] = append(contents[dir], treeFromIndexEntry{
			name:  filepath.Base(e.Path),
			entry: e,
		})
	}

	paths := make([]string, 0, len(contents))
	for p := range contents {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		return len(paths[i]) > len(paths[j])
	})

	var rootID ginternals.Oid
	for _, path := range paths {
		// Order here only needs to be deterministic; Tree.ToObject applies
		// the canonical on-disk ordering at serialization time
		entries := contents[path]
		sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

		treeEntries := make([]object.TreeEntry, 0, len(entries))
		for _, te := range entries {
			if te.entry != nil {
				treeEntries = append(treeEntries, object.TreeEntry{
					Path: te.name,
					ID:   te.entry.ID,
					Mode: object.ModeFile,
				})
				continue
			}
			treeEntries = append(treeEntries, object.TreeEntry{
				Path: te.name,
				ID:   te.id,
				Mode: object.ModeDirectory,
			})
		}

		tree := object.NewTree(treeEntries)
		oid, err := r.backend.WriteObject(tree.ToObject())
		if err != nil {
			return ginternals.NullOid, xerrors.Errorf("could not write tree for %q: %w", path, err)
		}
		rootID = oid

		if path != "" {
			parent := parentDir(path)
			contents[parent] = append(contents[parent], treeFromIndexEntry{
				name: filepath.Base(path),
				id:   oid,
			})
		}
	}

	return rootID, nil
}

func parentDir(p string) string {
	d := filepath.Dir(p)
	if d == "." {
		return ""
	}
	return d
}

// CreateCommit builds a commit from the tree staged in idx, with the
// given author and message and the commit HEAD resolves to (if any) as
// its parent, writes it to the object store,
// and advances the current branch (or HEAD directly, if detached) to
// point at it. It returns the new commit's Oid
func (r *Repository) CreateCommit(idx *index.Index, author object.Signature, message string) (ginternals.Oid, error) {
	treeID, err := r.TreeFromIndex(idx)
	if err != nil {
		return ginternals.NullOid, err
	}

	var parents []ginternals.Oid
	if headID, err := r.ObjectFind(ginternals.Head, object.TypeCommit, true); err == nil {
		parents = append(parents, headID)
	} else if !xerrors.Is(err, ErrReferenceNotFound) {
		return ginternals.NullOid, xerrors.Errorf("could not resolve HEAD: %w", err)
	}

	commit := object.NewCommit(treeID, author, &object.CommitOptions{
		Message:   strings.TrimSpace(message) + "\n",
		ParentsID: parents,
	})

	oid, err := r.backend.WriteObject(commit.ToObject())
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not write commit: %w", err)
	}

	branch, isBranch, err := r.BranchGetActive()
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not read HEAD: %w", err)
	}
	if isBranch {
		ref := ginternals.NewReference("refs/heads/"+branch, oid)
		if err := r.backend.WriteReference(ref); err != nil {
			return ginternals.NullOid, xerrors.Errorf("could not update refs/heads/%s: %w", branch, err)
		}
	} else {
		if err := r.backend.WriteReference(ginternals.NewReference(ginternals.Head, oid)); err != nil {
			return ginternals.NullOid, xerrors.Errorf("could not update HEAD: %w", err)
		}
	}

	return oid, nil
}
