package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gopherforge/mgit/internal/gitpath"
)

// ErrNoRepo is an error returned when no repo are found
var ErrNoRepo = errors.New("not a git repository (or any of the parent directories)")

// WorkingTree returns the absolute path to the working tree containing
// the current directory
func WorkingTree() (path string, err error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("could not get current working directory: %w", err)
	}
	return WorkingTreeFromPath(wd)
}

// WorkingTreeFromPath returns the absolute path to the root of a repo containing
// the provided directory, by walking up the tree until a ".git" directory
// is found
func WorkingTreeFromPath(p string) (path string, err error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("could not resolve %s: %w", p, err)
	}

	prev := ""
	for abs != prev {
		info, statErr := os.Stat(filepath.Join(abs, gitpath.DotGitPath))
		if statErr == nil && info.IsDir() {
			return abs, nil
		}

		prev = abs
		abs = filepath.Dir(abs)
	}
	return "", ErrNoRepo
}
