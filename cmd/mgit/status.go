package main

import (
	"fmt"
	"io"

	"github.com/gopherforge/mgit/internal/errutil"
	"github.com/spf13/cobra"
)

func newStatusCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the working tree status",
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return statusCmd(cmd.OutOrStdout(), cfg)
	}
	return cmd
}

func statusCmd(out io.Writer, cfg *globalFlags) (err error) {
	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	branch, onBranch, err := r.BranchGetActive()
	if err != nil {
		return err
	}
	if onBranch {
		fmt.Fprintf(out, "On branch %s\n", branch)
	} else {
		fmt.Fprintln(out, "HEAD detached")
	}

	idx, err := r.ReadIndex()
	if err != nil {
		return err
	}

	staged, err := r.DiffHeadIndex(idx)
	if err != nil {
		return err
	}
	if len(staged) > 0 {
		fmt.Fprintln(out, "\nChanges to be committed:")
		for _, e := range staged {
			fmt.Fprintf(out, "\t%s:\t%s\n", e.Kind, e.Path)
		}
	}

	if !r.IsBare() {
		wt, err := r.DiffIndexWorktree(idx)
		if err != nil {
			return err
		}
		if len(wt.Changed) > 0 {
			fmt.Fprintln(out, "\nChanges not staged for commit:")
			for _, e := range wt.Changed {
				fmt.Fprintf(out, "\t%s:\t%s\n", e.Kind, e.Path)
			}
		}
		if len(wt.Untracked) > 0 {
			fmt.Fprintln(out, "\nUntracked files:")
			for _, p := range wt.Untracked {
				fmt.Fprintf(out, "\t%s\n", p)
			}
		}
	}

	return nil
}
