package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/gopherforge/mgit/ginternals/config"
	"github.com/gopherforge/mgit/ginternals/object"
	"github.com/gopherforge/mgit/internal/errutil"
	"github.com/spf13/cobra"
)

// ErrNoUserIdentity is returned when a commit is attempted without
// user.name/user.email set anywhere in the aggregated config, and
// without the $GIT_AUTHOR_NAME/$GIT_AUTHOR_EMAIL env vars
var ErrNoUserIdentity = errors.New("no user identity available")

func newCommitCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record changes to the repository",
	}

	message := cmd.Flags().StringP("message", "m", "", "Use the given message as the commit message.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return commitCmd(cmd.OutOrStdout(), cfg, *message)
	}
	return cmd
}

func commitCmd(out io.Writer, cfg *globalFlags, message string) (err error) {
	if message == "" {
		return errors.New("aborting commit due to empty commit message")
	}

	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	author, ok := commitAuthor(cfg, r.Config())
	if !ok {
		return ErrNoUserIdentity
	}

	idx, err := r.ReadIndex()
	if err != nil {
		return err
	}

	oid, err := r.CreateCommit(idx, author, message)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, oid.String())
	return nil
}

// commitAuthor resolves the name/email to author a commit with:
// $GIT_AUTHOR_NAME/$GIT_AUTHOR_EMAIL take priority, falling back to
// user.name/user.email from the aggregated config files
func commitAuthor(cfg *globalFlags, repoCfg *config.Config) (object.Signature, bool) {
	name := cfg.env.Get("GIT_AUTHOR_NAME")
	email := cfg.env.Get("GIT_AUTHOR_EMAIL")
	if name != "" && email != "" {
		return object.NewSignature(name, email), true
	}

	name, email, ok := repoCfg.UserIdentity()
	if !ok {
		return object.Signature{}, false
	}
	return object.NewSignature(name, email), true
}
