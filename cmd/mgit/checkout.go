package main

import (
	"errors"
	"fmt"
	"io"

	git "github.com/gopherforge/mgit"
	"github.com/gopherforge/mgit/internal/errutil"
	"github.com/spf13/cobra"
)

func newCheckoutCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout COMMIT PATH",
		Short: "Checkout a commit's tree into an empty directory",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return checkoutCmd(cmd.OutOrStdout(), cfg, args[0], args[1])
	}
	return cmd
}

func checkoutCmd(out io.Writer, cfg *globalFlags, commit, dest string) (err error) {
	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	if err := r.CheckoutTree(commit, dest); err != nil {
		if errors.Is(err, git.ErrDestinationNotEmpty) {
			return fmt.Errorf("cannot checkout %s: %s is not empty", commit, dest)
		}
		return fmt.Errorf("could not checkout %s: %w", commit, err)
	}

	fmt.Fprintf(out, "checked out %s into %s\n", commit, dest)
	return nil
}
