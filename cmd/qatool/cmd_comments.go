package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mayerbet/QAtool/internal/format"
	"github.com/mayerbet/QAtool/internal/session"
)

func newCommentsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "List or personalize report comments",
	}

	var markdown bool
	list := &cobra.Command{
		Use:   "list",
		Short: "Show every topic with your effective comment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openEnv(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer env.Close()
			effective := env.newSession().Comments(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), format.Comments(effective, modeFor(markdown)))
			if env.user.IsZero() {
				hint(cmd.ErrOrStderr(), "No user set: showing default comments only.")
			}
			return nil
		},
	}
	list.Flags().BoolVar(&markdown, "markdown", false, "render as a Markdown table")

	set := &cobra.Command{
		Use:   "set <topic> <text>",
		Short: "Save your personalized comment for a topic",
		Long: `Stores the comment used for <topic> in your reports. <topic> is a topic
id or label. Use ">" inside the text to mark where a topic note is inserted.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer env.Close()
			sess := env.newSession()
			id, ok := resolveTopic(sess.Catalog(), args[0])
			if !ok {
				failure(cmd.ErrOrStderr(), session.Notice(session.ErrUnknownTopic))
				return fmt.Errorf("%w: %s", session.ErrUnknownTopic, args[0])
			}
			text := strings.Join(args[1:], " ")
			if err := sess.SaveComment(cmd.Context(), id, text); err != nil {
				failure(cmd.ErrOrStderr(), session.Notice(err))
				return err
			}
			success(cmd.OutOrStdout(), session.NoticeCommentSaved)
			return nil
		},
	}

	cmd.AddCommand(list, set)
	return cmd
}

func modeFor(markdown bool) format.Mode {
	if markdown {
		return format.Markdown
	}
	return format.ASCII
}
