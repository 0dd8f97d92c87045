package mgit

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gopherforge/mgit/ginternals/index"
	"github.com/gopherforge/mgit/ginternals/object"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// ErrPathOutsideWorktree is returned when a path passed to Add or
// Remove resolves outside of the repository's working tree
var ErrPathOutsideWorktree = xerrors.New("path is outside of the worktree")

// ReadIndex loads the staging index from .git/index, returning an
// empty index if the file doesn't exist yet
func (r *Repository) ReadIndex() (*index.Index, error) {
	return r.readIndex()
}

// readIndex loads the staging index from .git/index, returning an
// empty index if the file doesn't exist yet
func (r *Repository) readIndex() (*index.Index, error) {
	p := filepath.Join(r.GitDirPath(), "index")
	data, err := afero.ReadFile(r.wt, p)
	if err != nil {
		if os.IsNotExist(err) {
			return index.New(), nil
		}
		return nil, xerrors.Errorf("could not read index: %w", err)
	}
	idx, err := index.Read(data)
	if err != nil {
		return nil, xerrors.Errorf("could not parse index: %w", err)
	}
	return idx, nil
}

// writeIndex persists the staging index to .git/index
func (r *Repository) writeIndex(idx *index.Index) error {
	data, err := index.Write(idx)
	if err != nil {
		return xerrors.Errorf("could not serialize index: %w", err)
	}
	p := filepath.Join(r.GitDirPath(), "index")
	if err := afero.WriteFile(r.wt, p, data, 0o644); err != nil {
		return xerrors.Errorf("could not write index: %w", err)
	}
	return nil
}

// Remove unstages the given paths (relative to the working tree) and,
// unless keepFiles is set, deletes them from disk. skipMissing controls
// whether a path that isn't currently tracked is an error
func (r *Repository) Remove(paths []string, keepFiles, skipMissing bool) error {
	if r.IsBare() {
		return xerrors.New("cannot modify the index of a bare repository")
	}

	idx, err := r.readIndex()
	if err != nil {
		return err
	}

	toRemove := map[string]struct{}{}
	for _, p := range paths {
		rel, err := r.relWorktreePath(p)
		if err != nil {
			return err
		}
		toRemove[rel] = struct{}{}
	}

	var kept []index.Entry
	var removed []string
	for _, e := range idx.Entries {
		if _, match := toRemove[e.Path]; match {
			removed = append(removed, e.Path)
			delete(toRemove, e.Path)
			continue
		}
		kept = append(kept, e)
	}

	if len(toRemove) > 0 && !skipMissing {
		missing := make([]string, 0, len(toRemove))
		for p := range toRemove {
			missing = append(missing, p)
		}
		return xerrors.Errorf("paths not in the index: %s", strings.Join(missing, ", "))
	}

	if !keepFiles {
		for _, p := range removed {
			if err := r.wt.Remove(r.AbsPath(p)); err != nil && !os.IsNotExist(err) {
				return xerrors.Errorf("could not delete %s: %w", p, err)
			}
		}
	}

	idx.Entries = kept
	return r.writeIndex(idx)
}

// Add stages the given paths (relative to the working tree), hashing
// and writing their content as blobs, then recording them in the index
func (r *Repository) Add(paths []string) error {
	if r.IsBare() {
		return xerrors.New("cannot modify the index of a bare repository")
	}

	if err := r.Remove(paths, true, true); err != nil {
		return err
	}

	idx, err := r.readIndex()
	if err != nil {
		return err
	}

	for _, p := range paths {
		rel, err := r.relWorktreePath(p)
		if err != nil {
			return err
		}
		abs := r.AbsPath(rel)

		info, err := r.wt.Stat(abs)
		if err != nil {
			return xerrors.Errorf("could not stat %s: %w", abs, err)
		}
		if info.IsDir() {
			return xerrors.Errorf("%s is a directory, not a file", p)
		}

		content, err := afero.ReadFile(r.wt, abs)
		if err != nil {
			return xerrors.Errorf("could not read %s: %w", abs, err)
		}

		o := object.New(object.TypeBlob, content)
		oid, err := r.backend.WriteObject(o)
		if err != nil {
			return xerrors.Errorf("could not write blob for %s: %w", p, err)
		}

		idx.Entries = append(idx.Entries, index.Entry{
			CTime:     info.ModTime(),
			MTime:     info.ModTime(),
			ModeType:  index.ModeRegular,
			ModePerms: 0o644,
			Size:      uint32(info.Size()),
			ID:        oid,
			Path:      rel,
		})
	}

	return r.writeIndex(idx)
}

// relWorktreePath resolves p (which may be relative or absolute)
// against the working tree and returns a slash-separated path relative
// to its root
func (r *Repository) relWorktreePath(p string) (string, error) {
	abs := r.AbsPath(p)
	rel, err := filepath.Rel(r.WorkTreePath(), abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", xerrors.Errorf("%s: %w", p, ErrPathOutsideWorktree)
	}
	return filepath.ToSlash(rel), nil
}
