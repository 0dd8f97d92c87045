package main

import (
	"fmt"
	"io"

	"github.com/gopherforge/mgit/ginternals/object"
	"github.com/gopherforge/mgit/internal/errutil"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

func newRevParseCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rev-parse NAME",
		Short: "Pick out and massage parameters",
		Args:  cobra.ExactArgs(1),
	}

	typ := cmd.Flags().String("type", "", "Filter by specific type. If the object of the given name doesn't match, fail.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return revParseCmd(cmd.OutOrStdout(), cfg, args[0], *typ)
	}
	return cmd
}

// revParseCmd resolves name to an Oid, optionally requiring the
// resolved object to be (or peel down to) typ. name and typ are kept
// as two distinct parameters throughout, so name is never mistakenly
// passed where an object type is expected
func revParseCmd(out io.Writer, cfg *globalFlags, name, typ string) (err error) {
	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	var wantType object.Type
	if typ != "" {
		wantType, err = object.NewTypeFromString(typ)
		if err != nil {
			return xerrors.Errorf("%s: %w", typ, err)
		}
	}

	oid, err := r.ObjectFind(name, wantType, true)
	if err != nil {
		return xerrors.Errorf("not a valid object name %s: %w", name, err)
	}

	fmt.Fprintln(out, oid.String())
	return nil
}
