package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mayerbet/QAtool/internal/logging"
	"github.com/mayerbet/QAtool/internal/server"
)

const shutdownGrace = 5 * time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the checklist HTTP API",
		Long: `Starts the JSON API on the configured host and port. Each request
identifies its user with the X-QA-User header. Stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			env, err := openEnv(ctx, flags)
			if err != nil {
				return err
			}
			defer env.Close()

			settings := server.SettingsFromConfig(env.cfg)
			if host != "" {
				settings.Host = host
			}
			if cmd.Flags().Changed("port") {
				settings.Port = port
			}
			srv := server.NewServer(settings, env.deps,
				server.WithLogger(env.log.Named("server")),
				server.WithHistory(env.store),
			)
			if err := srv.Start(ctx); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Listening on %s", srv.BaseURL())
			hint(cmd.OutOrStdout(), "Press Ctrl+C to stop.")

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			err = g.Wait()
			env.log.Info("server stopped", logging.Err(err))
			return err
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "override the configured host")
	cmd.Flags().IntVar(&port, "port", server.DefaultPort, "override the configured port (0 picks a free port)")
	return cmd
}
