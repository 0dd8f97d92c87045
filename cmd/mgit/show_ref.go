package main

import (
	"fmt"
	"io"

	"github.com/gopherforge/mgit/internal/errutil"
	"github.com/spf13/cobra"
)

func newShowRefCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show-ref",
		Short: "List references in a local repository",
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return showRefCmd(cmd.OutOrStdout(), cfg)
	}
	return cmd
}

func showRefCmd(out io.Writer, cfg *globalFlags) (err error) {
	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	refs, err := r.ListReferences()
	if err != nil {
		return err
	}
	for _, ref := range refs {
		fmt.Fprintf(out, "%s %s\n", ref.Target.String(), ref.Name)
	}
	return nil
}
