package main

import (
	"fmt"
	"io"

	"github.com/gopherforge/mgit/ginternals"
	"github.com/gopherforge/mgit/ginternals/object"
	"github.com/gopherforge/mgit/internal/errutil"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

func newTagCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag [NAME [COMMIT]]",
		Short: "Create or list tags",
		Args:  cobra.MaximumNArgs(2),
	}

	annotate := cmd.Flags().BoolP("annotate", "a", false, "Make an unsigned, annotated tag object")
	message := cmd.Flags().StringP("message", "m", "", "Use the given tag message (implies -a).")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return listTagsCmd(cmd.OutOrStdout(), cfg)
		}
		target := ginternals.Head
		if len(args) == 2 {
			target = args[1]
		}
		return createTagCmd(cfg, args[0], target, *annotate || *message != "", *message)
	}
	return cmd
}

func listTagsCmd(out io.Writer, cfg *globalFlags) (err error) {
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
		const prefix = "refs/tags/"
		if len(ref.Name) > len(prefix) && ref.Name[:len(prefix)] == prefix {
			fmt.Fprintln(out, ref.Name[len(prefix):])
		}
	}
	return nil
}

// createTagCmd creates a new tag named name, pointing at target (a
// branch, sha, or any other name ObjectFind can resolve). When
// annotated is set a tag object is created and the reference points at
// it; otherwise the reference points directly at the target object
func createTagCmd(cfg *globalFlags, name, target string, annotated bool, message string) (err error) {
	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	oid, err := r.ObjectFind(target, object.Type(0), true)
	if err != nil {
		return xerrors.Errorf("not a valid object name %s: %w", target, err)
	}

	refTarget := oid
	if annotated {
		o, err := r.Backend().Object(oid)
		if err != nil {
			return err
		}

		author, ok := commitAuthor(cfg, r.Config())
		if !ok {
			return ErrNoUserIdentity
		}

		tag := object.NewTag(&object.TagParams{
			Target:  o,
			Name:    name,
			Tagger:  author,
			Message: message,
		})
		tagObj := tag.ToObject()
		refTarget, err = r.Backend().WriteObject(tagObj)
		if err != nil {
			return xerrors.Errorf("could not write tag object: %w", err)
		}
	}

	ref := ginternals.NewReference(ginternals.LocalTagFullName(name), refTarget)
	if err := r.Backend().WriteReferenceSafe(ref); err != nil {
		return xerrors.Errorf("could not create tag %s: %w", name, err)
	}
	return nil
}
