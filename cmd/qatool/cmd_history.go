package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mayerbet/QAtool/internal/format"
	"github.com/mayerbet/QAtool/internal/history"
	"github.com/mayerbet/QAtool/internal/report"
	"github.com/mayerbet/QAtool/internal/session"
)

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var (
		filter   history.Filter
		markdown bool
		show     string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the reports you saved",
		Long: `Lists your saved reports, newest first. Filters match case-insensitive
substrings of the evaluator name and contact id, and a YYYY-MM-DD date prefix.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if filter.Date != "" && !validDatePrefix(filter.Date) {
				return fmt.Errorf("--date %q is not a YYYY, YYYY-MM or YYYY-MM-DD prefix", filter.Date)
			}
			env, err := openEnv(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer env.Close()
			if env.user.IsZero() {
				failure(cmd.ErrOrStderr(), session.Notice(report.ErrUnauthenticated))
				return report.ErrUnauthenticated
			}
			records, err := env.store.ListReports(cmd.Context(), env.user)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			filtered := history.Apply(records, filter)
			out := cmd.OutOrStdout()
			if show != "" {
				for _, rec := range filtered {
					if rec.ID == show {
						fmt.Fprintln(out, rec.Text)
						return nil
					}
				}
				return fmt.Errorf("report %s not found", show)
			}
			fmt.Fprintln(out, format.History(filtered, modeFor(markdown)))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&filter.Evaluator, "evaluator", "", "evaluator name contains")
	f.StringVar(&filter.Contact, "contact", "", "contact id contains")
	f.StringVar(&filter.Date, "date", "", "creation date prefix (YYYY-MM-DD)")
	f.BoolVar(&markdown, "markdown", false, "render as a Markdown table")
	f.StringVar(&show, "show", "", "print the full text of the report with this id")
	return cmd
}

func validDatePrefix(prefix string) bool {
	for _, layout := range []string{"2006", "2006-01", history.DateLayout} {
		if _, err := time.Parse(layout, prefix); err == nil {
			return true
		}
	}
	return false
}
