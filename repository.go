// Package mgit ties together the object store, the reference store,
// and the working tree into a single Repository, the same way the
// porcelain commands in cmd/mgit expect to use it.
package mgit

import (
	"errors"
	"path/filepath"

	"github.com/gopherforge/mgit/backend"
	"github.com/gopherforge/mgit/backend/fsbackend"
	"github.com/gopherforge/mgit/ginternals"
	"github.com/gopherforge/mgit/ginternals/config"
	"github.com/gopherforge/mgit/internal/envutil"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// List of errors returned while creating or opening a Repository
var (
	// ErrRepositoryNotExist is returned when trying to open a repository
	// that doesn't exist
	ErrRepositoryNotExist = errors.New("repository does not exist")
	// ErrRepositoryExists is returned when trying to create a repository
	// that already exists
	ErrRepositoryExists = errors.New("repository already exists")
)

// Repository represents a git repository: the .git directory
// (object/ref store) plus, unless the repository is bare, the
// working tree it tracks.
type Repository struct {
	cfg     *config.Config
	backend backend.Backend
	wt      afero.Fs
}

// OpenOptions contains all the optional data used to create or open
// a Repository
type OpenOptions struct {
	// Env is used to resolve $GIT_DIR/$GIT_WORK_TREE/etc. Defaults to
	// the current process environment
	Env *envutil.Env
	// WorkingDirectory is the directory relative paths are resolved
	// from. Defaults to the current working directory
	WorkingDirectory string
	// GitDirPath overrides $GIT_DIR
	GitDirPath string
	// WorkTreePath overrides $GIT_WORK_TREE
	WorkTreePath string
	// IsBare states that the repository has no working tree
	IsBare bool
	// Backend overrides the storage backend used for the odb and refs.
	// Defaults to fsbackend
	Backend backend.Backend
	// WorkTreeFS overrides the filesystem used to read/write the
	// working tree. Defaults to the real filesystem. Unused when
	// IsBare is set
	WorkTreeFS afero.Fs
	// InitialBranch overrides the name of the branch HEAD points at
	// right after Init. Defaults to init.defaultBranch from the
	// aggregated config, falling back to master. Unused by Open
	InitialBranch string
}

func (opts OpenOptions) loadConfig(skipLookup bool) (*config.Config, error) {
	e := opts.Env
	if e == nil {
		e = envutil.NewFromOs()
	}
	return config.LoadConfig(e, config.LoadConfigOptions{
		WorkingDirectory: opts.WorkingDirectory,
		GitDirPath:       opts.GitDirPath,
		WorkTreePath:     opts.WorkTreePath,
		IsBare:           opts.IsBare,
		SkipGitDirLookUp: skipLookup,
	})
}

func newRepository(cfg *config.Config, opts OpenOptions) *Repository {
	r := &Repository{cfg: cfg}

	r.backend = opts.Backend
	if r.backend == nil {
		r.backend = fsbackend.New(cfg.GitDirPath)
	}

	if !opts.IsBare {
		r.wt = opts.WorkTreeFS
		if r.wt == nil {
			r.wt = afero.NewOsFs()
		}
	}
	return r
}

// Init creates a new repository by creating the .git directory (the
// odb, the empty refs hierarchy, and the default config) at the path
// resolved from opts
func Init(opts OpenOptions) (*Repository, error) {
	cfg, err := opts.loadConfig(true)
	if err != nil {
		return nil, xerrors.Errorf("could not resolve repository paths: %w", err)
	}

	r := newRepository(cfg, opts)
	if err := r.backend.Init(); err != nil {
		return nil, xerrors.Errorf("could not initialize repository: %w", err)
	}

	branch := opts.InitialBranch
	if branch == "" {
		if name, ok := cfg.DefaultBranch(); ok {
			branch = name
		} else {
			branch = ginternals.Master
		}
	}

	head := ginternals.NewSymbolicReference(ginternals.Head, "refs/heads/"+branch)
	if err := r.backend.WriteReferenceSafe(head); err != nil {
		if xerrors.Is(err, ginternals.ErrRefExists) {
			return nil, ErrRepositoryExists
		}
		return nil, xerrors.Errorf("could not write HEAD: %w", err)
	}

	return r, nil
}

// Open loads an existing repository. If opts.GitDirPath isn't set,
// the .git directory is found by walking up from WorkingDirectory
func Open(opts OpenOptions) (*Repository, error) {
	cfg, err := opts.loadConfig(false)
	if err != nil {
		return nil, xerrors.Errorf("could not resolve repository paths: %w", err)
	}

	r := newRepository(cfg, opts)

	// since we can't rely on the directory existing on disk to
	// validate the repo exists (the backend may not be fs-based), we
	// check that HEAD resolves, since it should always be present
	if _, err := r.backend.Reference(ginternals.Head); err != nil {
		return nil, ErrRepositoryNotExist
	}

	return r, nil
}

// Backend returns the underlying object/ref storage backend
func (r *Repository) Backend() backend.Backend {
	return r.backend
}

// Config returns the resolved repository configuration (paths, env
// overrides)
func (r *Repository) Config() *config.Config {
	return r.cfg
}

// WorkTree returns the filesystem used to read/write the working
// tree, or nil if the repository is bare
func (r *Repository) WorkTree() afero.Fs {
	return r.wt
}

// IsBare returns whether the repository has no working tree
func (r *Repository) IsBare() bool {
	return r.wt == nil
}

// GitDirPath returns the absolute path to the .git directory
func (r *Repository) GitDirPath() string {
	return r.cfg.GitDirPath
}

// WorkTreePath returns the absolute path to the working tree, or an
// empty string for a bare repository
func (r *Repository) WorkTreePath() string {
	return r.cfg.WorkTreePath
}

// AbsPath resolves a path relative to the working tree
func (r *Repository) AbsPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.cfg.WorkTreePath, p)
}

// Close releases the resources held by the repository's backend
func (r *Repository) Close() error {
	return r.backend.Close()
}
