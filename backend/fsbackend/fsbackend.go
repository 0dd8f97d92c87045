// Package fsbackend contains an implementation of the backend.Backend
// interface for the filesystem
package fsbackend

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/gopherforge/mgit/backend"
	"github.com/gopherforge/mgit/ginternals"
	"github.com/gopherforge/mgit/internal/cache"
	"github.com/gopherforge/mgit/internal/gitpath"
	"github.com/gopherforge/mgit/internal/syncutil"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// we make sure the struct implements the interface
var _ backend.Backend = (*Backend)(nil)

// defaultCacheSize is the amount of objects kept in memory to avoid
// re-reading and re-inflating them from disk
const defaultCacheSize = 128

// defaultMutexPoolSize is the amount of named mutexes used to
// serialize access to a given object or reference. Collisions are
// acceptable: they only cost extra contention, never correctness.
const defaultMutexPoolSize = 64

// Backend is a Backend implementation that uses the filesystem to store data
type Backend struct {
	root string
	fs   afero.Fs

	objectMu *syncutil.NamedMutex
	cache    *cache.LRU

	looseObjects sync.Map
}

// New returns a new Backend object rooted at the given .git directory
func New(dotGitPath string) *Backend {
	return &Backend{
		root:     dotGitPath,
		fs:       afero.NewOsFs(),
		objectMu: syncutil.NewNamedMutex(defaultMutexPoolSize),
		cache:    cache.NewLRU(defaultCacheSize),
	}
}

// Close frees the resources held by the backend
func (b *Backend) Close() error {
	b.cache.Clear()
	return nil
}

// Init initializes a repository
func (b *Backend) Init() error {
	// Create the directories
	dirs := []string{
		gitpath.ObjectsPath,
		gitpath.RefsTagsPath,
		gitpath.RefsHeadsPath,
		gitpath.ObjectsInfoPath,
		gitpath.ObjectsPackPath,
	}
	for _, d := range dirs {
		fullPath := filepath.Join(b.root, d)
		if err := b.fs.MkdirAll(fullPath, 0o750); err != nil {
			return xerrors.Errorf("could not create directory %s: %w", d, err)
		}
	}

	// Create the files with the default content
	// (taken from a repo created on github)
	files := []struct {
		path    string
		content []byte
	}{
		{
			path:    gitpath.DescriptionPath,
			content: []byte("Unnamed repository; edit this file 'description' to name the repository.\n"),
		},
	}
	for _, f := range files {
		fullPath := filepath.Join(b.root, f.path)
		if err := afero.WriteFile(b.fs, fullPath, f.content, 0o644); err != nil {
			return xerrors.Errorf("could not create file %s: %w", f.path, err)
		}
	}

	if err := b.setDefaultCfg(); err != nil {
		return xerrors.Errorf("could not set the default config: %w", err)
	}

	return b.loadLooseObjects()
}

// loadLooseObjects scans .git/objects and records which loose objects
// already exist on disk, so HasObject/Object don't need to stat the
// filesystem on every lookup.
func (b *Backend) loadLooseObjects() error {
	p := filepath.Join(b.root, gitpath.ObjectsPath)
	exists, err := afero.DirExists(b.fs, p)
	if err != nil || !exists {
		return nil //nolint:nilerr // a repo with no objects dir yet has nothing to load
	}

	return afero.Walk(b.fs, p, func(path string, info os.FileInfo, err error) error {
		if err != nil || path == p || info.IsDir() {
			return nil
		}
		prefix := filepath.Base(filepath.Dir(path))
		if len(prefix) != 2 {
			return nil
		}
		sha := prefix + info.Name()
		oid, oErr := ginternals.NewOidFromStr(sha)
		if oErr != nil {
			return nil //nolint:nilerr // ignore anything that isn't a loose object file
		}
		b.looseObjects.Store(oid, struct{}{})
		return nil
	})
}
