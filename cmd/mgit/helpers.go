package main

import (
	"fmt"
	"io"

	git "github.com/gopherforge/mgit"
)

func loadRepository(cfg *globalFlags) (*git.Repository, error) {
	return git.Open(git.OpenOptions{
		Env:              cfg.env,
		WorkingDirectory: cfg.C.String(),
		GitDirPath:       cfg.GitDir,
		WorkTreePath:     cfg.WorkTree,
		IsBare:           cfg.Bare,
	})
}

func fprintln(quiet bool, out io.Writer, msg ...interface{}) {
	if !quiet {
		fmt.Fprintln(out, msg...)
	}
}

func fprintf(quiet bool, out io.Writer, format string, a ...interface{}) {
	if !quiet {
		fmt.Fprintf(out, format, a...)
	}
}
