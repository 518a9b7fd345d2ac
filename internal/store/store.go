package store

import (
	"context"

	"github.com/mayerbet/QAtool/internal/catalog"
	"github.com/mayerbet/QAtool/internal/comments"
	"github.com/mayerbet/QAtool/internal/identity"
	"github.com/mayerbet/QAtool/internal/report"
)

// Store is everything the app needs from persistence.
type Store interface {
	catalog.Source
	comments.Backend
	comments.Lister
	report.Saver

	TopicCount(ctx context.Context) (int, error)
	ImportSeed(ctx context.Context, seed catalog.Seed) (ImportResult, error)
	ListReports(ctx context.Context, user identity.UserID) ([]report.Record, error)
}

var (
	_ Store                   = (*SQLStore)(nil)
	_ comments.AtomicUpserter = (*SQLStore)(nil)
	_ Store                   = (*MemStore)(nil)
)

// SeedIfEmpty imports seed when the store has no topics yet. It reports
// whether an import happened.
func SeedIfEmpty(ctx context.Context, s Store, seed catalog.Seed) (bool, error) {
	n, err := s.TopicCount(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.ImportSeed(ctx, seed); err != nil {
		return false, err
	}
	return true, nil
}
