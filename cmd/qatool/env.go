package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mayerbet/QAtool/internal/catalog"
	"github.com/mayerbet/QAtool/internal/comments"
	"github.com/mayerbet/QAtool/internal/config"
	"github.com/mayerbet/QAtool/internal/identity"
	"github.com/mayerbet/QAtool/internal/logbook"
	"github.com/mayerbet/QAtool/internal/logging"
	"github.com/mayerbet/QAtool/internal/report"
	"github.com/mayerbet/QAtool/internal/session"
	"github.com/mayerbet/QAtool/internal/store"
)

// env is the wiring shared by the subcommands: config, loggers, the
// store and the catalog snapshot built from it.
type env struct {
	cfg     *config.Config
	log     *logging.Logger
	journal *logbook.Logbook
	store   *store.SQLStore
	user    identity.UserID
	deps    session.Deps
}

func workspaceDir(flags *globalFlags) (string, error) {
	if flags.dir != "" {
		return filepath.Abs(flags.dir)
	}
	return os.Getwd()
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	dir, err := workspaceDir(flags)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}
	if err := config.InitDir(dir); err != nil {
		return nil, fmt.Errorf("init %s: %w", config.Dir, err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if flags.db != "" {
		path, err := filepath.Abs(flags.db)
		if err != nil {
			return nil, fmt.Errorf("resolve --db: %w", err)
		}
		cfg.File.Database = path
	}
	return cfg, nil
}

// openEnv loads config, opens the store, seeds it when empty and loads the
// catalog snapshot.
func openEnv(ctx context.Context, flags *globalFlags) (*env, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.WorkspaceDir, cfg.LogLevel())
	if err != nil {
		return nil, err
	}
	journal, err := logbook.New(cfg.JournalPath())
	if err != nil {
		log.Close()
		return nil, err
	}
	st, err := openStore(cfg)
	if err != nil {
		log.Close()
		return nil, err
	}
	e := &env{cfg: cfg, log: log, journal: journal, store: st}

	var warnings []error
	if seedPath := cfg.File.CatalogSeed; seedPath != "" {
		if err := e.seed(ctx, seedPath); err != nil {
			log.Warn("catalog seed failed", logging.String("path", seedPath), logging.Err(err))
			warnings = append(warnings, err)
		}
	}

	snap := catalog.Load(ctx, st)
	if snap.Catalog.Len() == 0 {
		snap.Warnings = append(snap.Warnings, errors.New("catalog is empty; run `qatool catalog import <file>`"))
	}
	for _, w := range snap.Warnings {
		log.Warn("catalog load", logging.Err(w))
	}

	e.user = currentUser(ctx, flags, cfg)
	e.deps = session.Deps{
		Resolver:  comments.NewResolver(snap, st, comments.WithLogger(log.Named("comments"))),
		Persister: report.NewPersister(st),
		Journal:   journal,
		Logger:    log.Named("session"),
		Warnings:  append(warnings, snap.Warnings...),
	}
	log.Info("environment ready",
		logging.String("database", cfg.DatabasePath()),
		logging.Int("topics", snap.Catalog.Len()),
		logging.Bool("identified", !e.user.IsZero()))
	return e, nil
}

// currentUser prefers --user over the config file and QATOOL_USER. An
// unknown user is the zero key.
func currentUser(ctx context.Context, flags *globalFlags, cfg *config.Config) identity.UserID {
	provider := identity.Chain{identity.Static(flags.user), identity.Static(cfg.User())}
	user, err := provider.CurrentUser(ctx)
	if err != nil {
		return ""
	}
	return user
}

func openStore(cfg *config.Config) (*store.SQLStore, error) {
	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DatabasePath(), err)
	}
	return st, nil
}

func (e *env) seed(ctx context.Context, path string) error {
	file, err := catalog.LoadSeedFile(path)
	if err != nil {
		return err
	}
	imported, err := store.SeedIfEmpty(ctx, e.store, file.Seed)
	if err != nil {
		return fmt.Errorf("seed %s: %w", path, err)
	}
	if imported {
		e.journal.Info("catalog seeded from %s", filepath.Base(path))
	}
	return nil
}

func (e *env) newSession() *session.Session {
	return session.New(e.user, e.deps)
}

// Close releases the store and flushes the logger.
func (e *env) Close() error {
	return errors.Join(e.store.Close(), e.log.Close())
}
