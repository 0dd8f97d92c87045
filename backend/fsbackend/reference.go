package fsbackend

import (
	"bufio"
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopherforge/mgit/backend"
	"github.com/gopherforge/mgit/ginternals"
	"github.com/gopherforge/mgit/internal/gitpath"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Reference returns a stored reference from its name
// ErrRefNotFound is returned if the reference doesn't exists
func (b *Backend) Reference(name string) (*ginternals.Reference, error) {
	var packedRef map[string]string

	finder := func(name string) ([]byte, error) {
		data, err := ioutil.ReadFile(b.systemPath(name))
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, xerrors.Errorf("could not read reference content: %w", err)
			}
			// if the reference can't be found on disk, it might be
			// in the packed-ref file
			if packedRef == nil {
				packedRef, err = b.parsePackedRefs()
				if err != nil {
					return nil, xerrors.Errorf("couldn't load packed-refs: %w", err)
				}
			}
			sha, ok := packedRef[name]
			if !ok {
				return nil, xerrors.Errorf(`ref "%s": %w`, name, ginternals.ErrRefNotFound)
			}
			return []byte(sha), nil
		}
		return data, nil
	}
	return ginternals.ResolveReference(name, finder)
}

// ReferenceShallow returns a reference's immediate content, without
// following symbolic indirection. Unlike Reference, it succeeds even
// when a symbolic reference's target doesn't exist yet, which is the
// case for HEAD right after Init, before the first commit creates
// refs/heads/master
func (b *Backend) ReferenceShallow(name string) (*ginternals.Reference, error) {
	data, err := ioutil.ReadFile(b.systemPath(name))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, xerrors.Errorf("could not read reference content: %w", err)
		}
		packedRef, pErr := b.parsePackedRefs()
		if pErr != nil {
			return nil, xerrors.Errorf("couldn't load packed-refs: %w", pErr)
		}
		sha, ok := packedRef[name]
		if !ok {
			return nil, xerrors.Errorf(`ref "%s": %w`, name, ginternals.ErrRefNotFound)
		}
		data = []byte(sha)
	}

	data = bytes.TrimSpace(data)
	if bytes.HasPrefix(data, []byte("ref: ")) {
		return ginternals.NewSymbolicReference(name, string(data[5:])), nil
	}
	oid, err := ginternals.NewOidFromChars(data)
	if err != nil {
		return nil, xerrors.Errorf(`ref "%s": %w`, name, ginternals.ErrRefInvalid)
	}
	return ginternals.NewReference(name, oid), nil
}

// systemPath returns a path from a ref name
// Ex.: On windows refs/heads/master would return refs\heads\master
func (b *Backend) systemPath(name string) string {
	switch os.PathSeparator {
	case '/':
		return filepath.Join(b.root, name)
	default:
		name = filepath.FromSlash(name)
		return filepath.Join(b.root, name)
	}
}

// parsePackedRefs parsed the packed-refs file and returns a map
// refName => Oid
// https://git-scm.com/docs/git-pack-refs
func (b *Backend) parsePackedRefs() (refs map[string]string, err error) {
	refs = map[string]string{}
	f, err := b.fs.Open(filepath.Join(b.root, gitpath.PackedRefsPath))
	if err != nil {
		// if the file doesn't exist we just return an empty map
		if os.IsNotExist(err) {
			return refs, nil
		}
		return nil, xerrors.Errorf("could not open %s: %w", gitpath.PackedRefsPath, err)
	}
	defer func() {
		closeErr := f.Close()
		if err == nil {
			err = closeErr
		}
	}()

	sc := bufio.NewScanner(f)
	for i := 1; sc.Scan(); i++ {
		line := sc.Text()
		// we skip empty lines, comments, and annotated tag commit
		if line == "" || line[0] == '#' || line[0] == '^' {
			continue
		}
		// We expected data to have the format:
		// "oid ref-name"
		parts := strings.Split(line, " ")
		if len(parts) != 2 {
			return nil, xerrors.Errorf("unexpected data line %d: %w", i, ginternals.ErrPackedRefInvalid)
		}
		refs[parts[1]] = parts[0]
	}

	if sc.Err() != nil {
		return nil, xerrors.Errorf("could not parse %s: %w", gitpath.PackedRefsPath, err)
	}

	return refs, nil
}

// WriteReference writes the given reference on disk. If the
// reference already exists it will be overwritten
func (b *Backend) WriteReference(ref *ginternals.Reference) error {
	if !ginternals.IsRefNameValid(ref.Name()) {
		return ginternals.ErrRefNameInvalid
	}

	target := ""
	switch ref.Type() {
	case ginternals.SymbolicReference:
		target = fmt.Sprintf("ref: %s\n", ref.SymbolicTarget())
	case ginternals.OidReference:
		target = fmt.Sprintf("%s\n", ref.Target().String())
	default:
		return xerrors.Errorf("reference type %d: %w", ref.Type(), ginternals.ErrUnknownRefType)
	}
	err := ioutil.WriteFile(b.systemPath(ref.Name()), []byte(target), 0o644)
	if err != nil {
		return xerrors.Errorf("could not persist reference to disk: %w", err)
	}
	return nil
}

// WriteReferenceSafe writes the given reference in the db
// ErrRefExists is returned if the reference already exists
func (b *Backend) WriteReferenceSafe(ref *ginternals.Reference) error {
	if !ginternals.IsRefNameValid(ref.Name()) {
		return ginternals.ErrRefNameInvalid
	}

	// First we check if the reference is on disk
	p := b.systemPath(ref.Name())
	_, err := b.fs.Stat(p)
	if !os.IsNotExist(err) {
		if err != nil {
			return xerrors.Errorf("could not check if reference exists on disk: %w", err)
		}
		return ginternals.ErrRefExists
	}

	// Now we check if the reference is on the packed-refs file
	refs, err := b.parsePackedRefs()
	if err != nil {
		return xerrors.Errorf("could not check %s: %w", gitpath.PackedRefsPath, err)
	}
	if _, ok := refs[ref.Name()]; ok {
		return ginternals.ErrRefExists
	}

	return b.WriteReference(ref)
}

// WalkReferences runs the provided method on all the references stored
// on disk in refs/, as well as the ones found in packed-refs
func (b *Backend) WalkReferences(f backend.RefWalkFunc) error {
	seen := map[string]struct{}{}

	refsDir := filepath.Join(b.root, gitpath.RefsPath)
	exists, err := afero.DirExists(b.fs, refsDir)
	if err != nil {
		return xerrors.Errorf("could not check if %s exists: %w", refsDir, err)
	}
	if exists {
		walkErr := afero.Walk(b.fs, refsDir, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return err
			}
			rel, rErr := filepath.Rel(b.root, path)
			if rErr != nil {
				return rErr
			}
			name := filepath.ToSlash(rel)
			seen[name] = struct{}{}

			ref, refErr := b.Reference(name)
			if refErr != nil {
				return xerrors.Errorf("could not load reference %s: %w", name, refErr)
			}
			return f(ref)
		})
		if walkErr != nil {
			if xerrors.Is(walkErr, backend.WalkStop) {
				return nil
			}
			return walkErr
		}
	}

	packedRefs, err := b.parsePackedRefs()
	if err != nil {
		return xerrors.Errorf("could not load packed-refs: %w", err)
	}
	for name := range packedRefs {
		if _, alreadyWalked := seen[name]; alreadyWalked {
			continue
		}
		ref, refErr := b.Reference(name)
		if refErr != nil {
			return xerrors.Errorf("could not load reference %s: %w", name, refErr)
		}
		if err := f(ref); err != nil {
			if xerrors.Is(err, backend.WalkStop) {
				return nil
			}
			return err
		}
	}
	return nil
}
