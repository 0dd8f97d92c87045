package mgit

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/gopherforge/mgit/ginternals"
	"github.com/gopherforge/mgit/ginternals/object"
	"golang.org/x/xerrors"
)

var (
	// ErrReferenceNotFound is returned when a name passed to
	// ObjectFind/ObjectResolve doesn't match anything in the repository
	ErrReferenceNotFound = errors.New("no such reference")
	// ErrAmbiguousReference is returned when a name passed to
	// ObjectFind/ObjectResolve matches more than one object
	ErrAmbiguousReference = errors.New("ambiguous reference")
)

var shaPrefixRE = regexp.MustCompile(`^[0-9a-fA-F]{4,40}$`)

// ObjectResolve returns the list of objects a name could refer to.
// name can be HEAD, a full or abbreviated SHA-1, a tag name, a branch
// name, or a remote-tracking branch name. More than one candidate
// means the name is ambiguous; zero candidates means it matches
// nothing in the repository
func (r *Repository) ObjectResolve(name string) ([]ginternals.Oid, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	if name == ginternals.Head {
		ref, err := r.backend.Reference(ginternals.Head)
		if err != nil {
			if xerrors.Is(err, ginternals.ErrRefNotFound) {
				return nil, nil
			}
			return nil, xerrors.Errorf("could not resolve %s: %w", ginternals.Head, err)
		}
		return []ginternals.Oid{ref.Target()}, nil
	}

	var candidates []ginternals.Oid
	seen := map[ginternals.Oid]struct{}{}
	add := func(oid ginternals.Oid) {
		if _, ok := seen[oid]; ok {
			return
		}
		seen[oid] = struct{}{}
		candidates = append(candidates, oid)
	}

	if shaPrefixRE.MatchString(name) {
		prefix := strings.ToLower(name)
		err := r.backend.WalkLooseObjectIDs(func(oid ginternals.Oid) error {
			if strings.HasPrefix(oid.String(), prefix) {
				add(oid)
			}
			return nil
		})
		if err != nil {
			return nil, xerrors.Errorf("could not walk objects: %w", err)
		}
	}

	for _, prefix := range []string{"refs/tags/", "refs/heads/", "refs/remotes/"} {
		ref, err := r.backend.Reference(prefix + name)
		if err != nil {
			if xerrors.Is(err, ginternals.ErrRefNotFound) {
				continue
			}
			return nil, xerrors.Errorf("could not resolve %s: %w", prefix+name, err)
		}
		add(ref.Target())
	}

	return candidates, nil
}

// ObjectFind resolves name to a single Oid. If typ isn't the zero
// value, the returned object is guaranteed to be of that type: tags
// are peeled to their target, and commits are peeled to their tree
// when typ is object.TypeTree. follow controls whether that peeling
// happens at all; with follow set to false, ObjectFind returns
// ErrReferenceNotFound when the resolved object isn't already of the
// requested type
func (r *Repository) ObjectFind(name string, typ object.Type, follow bool) (ginternals.Oid, error) {
	candidates, err := r.ObjectResolve(name)
	if err != nil {
		return ginternals.NullOid, err
	}
	if len(candidates) == 0 {
		return ginternals.NullOid, xerrors.Errorf("%s: %w", name, ErrReferenceNotFound)
	}
	if len(candidates) > 1 {
		return ginternals.NullOid, xerrors.Errorf("%s: %w", name, ErrAmbiguousReference)
	}

	oid := candidates[0]
	if typ == 0 {
		return oid, nil
	}

	for {
		o, err := r.backend.Object(oid)
		if err != nil {
			return ginternals.NullOid, xerrors.Errorf("could not read object %s: %w", oid.String(), err)
		}

		if o.Type() == typ {
			return oid, nil
		}
		if !follow {
			return ginternals.NullOid, xerrors.Errorf("%s: %w", name, ErrReferenceNotFound)
		}

		switch {
		case o.Type() == object.TypeTag:
			tag, err := o.AsTag()
			if err != nil {
				return ginternals.NullOid, xerrors.Errorf("could not parse tag %s: %w", oid.String(), err)
			}
			oid = tag.Target()
		case o.Type() == object.TypeCommit && typ == object.TypeTree:
			commit, err := o.AsCommit()
			if err != nil {
				return ginternals.NullOid, xerrors.Errorf("could not parse commit %s: %w", oid.String(), err)
			}
			oid = commit.TreeID()
		default:
			return ginternals.NullOid, xerrors.Errorf("%s: %w", name, ErrReferenceNotFound)
		}
	}
}

// RefEntry is a single reference returned by ListReferences, resolved
// down to the object it points at
type RefEntry struct {
	Name   string
	Target ginternals.Oid
}

// ListReferences returns every reference in the repository, sorted by
// name
func (r *Repository) ListReferences() ([]RefEntry, error) {
	var entries []RefEntry
	err := r.backend.WalkReferences(func(ref *ginternals.Reference) error {
		entries = append(entries, RefEntry{
			Name:   ref.Name(),
			Target: ref.Target(),
		})
		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("could not list references: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// BranchGetActive returns the name of the branch HEAD currently points
// at. The second return value is false when HEAD is detached (pointing
// directly at a commit instead of at a branch reference)
func (r *Repository) BranchGetActive() (string, bool, error) {
	head, err := r.backend.ReferenceShallow(ginternals.Head)
	if err != nil {
		return "", false, xerrors.Errorf("could not read HEAD: %w", err)
	}
	if head.Type() != ginternals.SymbolicReference {
		return "", false, nil
	}
	const branchPrefix = "refs/heads/"
	target := head.SymbolicTarget()
	if !strings.HasPrefix(target, branchPrefix) {
		return "", false, nil
	}
	return strings.TrimPrefix(target, branchPrefix), true, nil
}
