package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mayerbet/QAtool/internal/tui"
)

// globalFlags apply to every subcommand.
type globalFlags struct {
	dir  string
	user string
	db   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "qatool",
		Short: "QA checklist and report builder for contact evaluations",
		Long: "qatool walks an evaluator through the QA topic checklist, builds the\n" +
			"evaluation report from default or personalized comments and saves it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, flags)
		},
	}
	root.Version = version

	pf := root.PersistentFlags()
	pf.StringVar(&flags.dir, "dir", "", "workspace directory holding .qatool (default: current directory)")
	pf.StringVar(&flags.user, "user", "", "identity key for this run (overrides config and QATOOL_USER)")
	pf.StringVar(&flags.db, "db", "", "SQLite database path (overrides config and QATOOL_DB)")

	root.AddCommand(
		newServeCmd(flags),
		newReportCmd(flags),
		newCommentsCmd(flags),
		newHistoryCmd(flags),
		newCatalogCmd(flags),
		newWhoamiCmd(flags),
	)
	return root
}

func runTUI(cmd *cobra.Command, flags *globalFlags) error {
	env, err := openEnv(cmd.Context(), flags)
	if err != nil {
		return err
	}
	defer env.Close()

	sess := env.newSession()
	env.journal.Info("session opened · %d topic(s)", sess.Catalog().Len())
	app := tui.NewApp(sess, env.journal,
		tui.WithHistory(env.store),
		tui.WithContext(cmd.Context()),
	)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	env.journal.Info("session closed")
	return nil
}
