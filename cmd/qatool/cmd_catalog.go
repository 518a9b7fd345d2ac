package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mayerbet/QAtool/internal/catalog"
	"github.com/mayerbet/QAtool/internal/format"
)

func newCatalogCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect or seed the topic catalog",
	}

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import topics and default comments from a YAML or TOML seed",
		Long: `Upserts every topic of the seed file and its default comment. Existing
topics keep their id; personalized comments are never touched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := catalog.LoadSeedFile(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			res, err := st.ImportSeed(cmd.Context(), file.Seed)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Imported %d topic(s) and %d default comment(s) from %s",
				res.Topics, res.Defaults, file.Path)
			return nil
		},
	}

	var markdown bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the topics in checklist order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openEnv(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer env.Close()
			tb := format.NewTable(modeFor(markdown))
			tb.Header("#", "ID", "Label", "Default comment")
			cat := env.deps.Resolver.Catalog()
			for i, t := range cat.Topics() {
				def, _ := env.deps.Resolver.Default(t.ID)
				tb.Row(i+1, string(t.ID), t.Label, format.Excerpt(def, 60))
			}
			fmt.Fprintln(cmd.OutOrStdout(), tb.String())
			for _, w := range env.deps.Warnings {
				warn(cmd.ErrOrStderr(), "warning: %v", w)
			}
			return nil
		},
	}
	listCmd.Flags().BoolVar(&markdown, "markdown", false, "render as a Markdown table")

	cmd.AddCommand(importCmd, listCmd)
	return cmd
}
