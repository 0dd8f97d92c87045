package main

import (
	"fmt"
	"io"

	"github.com/gopherforge/mgit/ginternals"
	"github.com/gopherforge/mgit/internal/errutil"
	"github.com/spf13/cobra"
)

func newLogCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log [COMMIT]",
		Short: "Show commit logs",
		Args:  cobra.MaximumNArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		start := ginternals.Head
		if len(args) > 0 {
			start = args[0]
		}
		return logCmd(cmd.OutOrStdout(), cfg, start)
	}
	return cmd
}

func logCmd(out io.Writer, cfg *globalFlags, start string) (err error) {
	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	entries, err := r.Log(start)
	if err != nil {
		return err
	}

	for _, e := range entries {
		c := e.Commit
		fmt.Fprintf(out, "commit %s\n", e.ID.String())
		fmt.Fprintf(out, "Author: %s\n", c.Author().String())
		fmt.Fprintln(out)
		fmt.Fprintf(out, "    %s\n\n", c.Message())
	}
	return nil
}
