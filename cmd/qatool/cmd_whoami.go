package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mayerbet/QAtool/internal/identity"
)

func newWhoamiCmd(flags *globalFlags) *cobra.Command {
	var set string
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show or set the identity key used for saving",
		Long: `Prints the identity key that scopes your personalized comments and
report history. --set stores a new key in .qatool/config.yaml.
QATOOL_USER and --user override the stored key for a single run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if set != "" {
				if err := cfg.SetUser(set); err != nil {
					return err
				}
				success(out, "User set to %s", identity.Normalize(set))
				return nil
			}
			user := currentUser(cmd.Context(), flags, cfg)
			if user.IsZero() {
				warn(out, "No user set.")
				hint(out, "Run `qatool whoami --set <user>` or export QATOOL_USER.")
				return nil
			}
			fmt.Fprintln(out, user)
			return nil
		},
	}
	cmd.Flags().StringVar(&set, "set", "", "store this identity key in the config file")
	return cmd
}
