package main

import (
	"github.com/gopherforge/mgit/internal/errutil"
	"github.com/spf13/cobra"
)

func newRmCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm PATH...",
		Short: "Remove files from the working tree and from the index",
		Args:  cobra.MinimumNArgs(1),
	}

	cached := cmd.Flags().Bool("cached", false, "Only remove from the index, leave the working tree file alone.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rmCmd(cfg, args, *cached)
	}
	return cmd
}

func rmCmd(cfg *globalFlags, paths []string, cached bool) (err error) {
	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	return r.Remove(paths, cached, false)
}
