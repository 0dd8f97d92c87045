package mgit

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/gopherforge/mgit/ginternals"
	"github.com/gopherforge/mgit/ginternals/object"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// ErrDestinationNotEmpty is returned by CheckoutTree when the
// requested destination directory already exists and is not empty
var ErrDestinationNotEmpty = errors.New("destination is not empty")

// CheckoutTree writes every blob reachable from name (a commit, tag,
// or tree) to dest on the filesystem, recreating the directory
// structure recorded by the tree. dest must be empty or not exist at
// all; CheckoutTree never touches HEAD or the index, it only
// materializes the tree's content on disk
func (r *Repository) CheckoutTree(name, dest string) error {
	empty, err := r.dirEmptyOrMissing(dest)
	if err != nil {
		return xerrors.Errorf("could not check %s: %w", dest, err)
	}
	if !empty {
		return xerrors.Errorf("%s: %w", dest, ErrDestinationNotEmpty)
	}

	treeID, err := r.ObjectFind(name, object.TypeTree, true)
	if err != nil {
		return xerrors.Errorf("could not resolve %s to a tree: %w", name, err)
	}
	if err := r.wt.MkdirAll(dest, 0o755); err != nil {
		return xerrors.Errorf("could not create %s: %w", dest, err)
	}
	return r.checkoutTree(treeID, dest)
}

func (r *Repository) dirEmptyOrMissing(dir string) (bool, error) {
	entries, err := afero.ReadDir(r.wt, dir)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

func (r *Repository) checkoutTree(treeID ginternals.Oid, dest string) error {
	o, err := r.backend.Object(treeID)
	if err != nil {
		return xerrors.Errorf("could not load tree %s: %w", treeID.String(), err)
	}
	tree, err := o.AsTree()
	if err != nil {
		return xerrors.Errorf("could not parse tree %s: %w", treeID.String(), err)
	}

	for _, entry := range tree.Entries() {
		entryDest := filepath.Join(dest, entry.Path)

		switch entry.Mode.ObjectType() {
		case object.TypeTree:
			if exists, err := afero.DirExists(r.wt, entryDest); err != nil {
				return xerrors.Errorf("could not check %s: %w", entryDest, err)
			} else if exists {
				return xerrors.Errorf("%s: %w", entryDest, ErrDestinationNotEmpty)
			}
			if err := r.wt.Mkdir(entryDest, 0o755); err != nil {
				return xerrors.Errorf("could not create directory %s: %w", entryDest, err)
			}
			if err := r.checkoutTree(entry.ID, entryDest); err != nil {
				return err
			}
		case object.TypeBlob:
			blobObj, err := r.backend.Object(entry.ID)
			if err != nil {
				return xerrors.Errorf("could not load blob %s: %w", entry.ID.String(), err)
			}
			if err := afero.WriteFile(r.wt, entryDest, blobObj.Bytes(), 0o644); err != nil {
				return xerrors.Errorf("could not write %s: %w", entryDest, err)
			}
		default:
			return xerrors.Errorf("unsupported entry mode %o at %s", entry.Mode, entryDest)
		}
	}
	return nil
}
