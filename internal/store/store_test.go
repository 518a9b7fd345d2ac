package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mayerbet/QAtool/internal/catalog"
	"github.com/mayerbet/QAtool/internal/comments"
	"github.com/mayerbet/QAtool/internal/report"
)

func testSeed(t *testing.T) catalog.Seed {
	t.Helper()
	seed, err := catalog.ParseSeedYAML([]byte(`topics:
  - id: greeting
    label: Greeting
    guide: Did the agent greet the customer?
    default_comment: Greeted the customer > as scripted.
  - id: tone
    label: Tone
  - label: Resolution
    default_comment: Issue resolved.
`))
	require.NoError(t, err)
	return seed
}

func openSQL(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "qatool.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// stores runs fn against both backends.
func stores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, openSQL(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemStore()) })
}

func TestSeedAndCatalogLoad(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		imported, err := SeedIfEmpty(ctx, s, testSeed(t))
		require.NoError(t, err)
		assert.True(t, imported)

		imported, err = SeedIfEmpty(ctx, s, testSeed(t))
		require.NoError(t, err)
		assert.False(t, imported, "second seed is skipped")

		snap := catalog.Load(ctx, s)
		require.Empty(t, snap.Warnings)
		topics := snap.Catalog.Topics()
		require.Len(t, topics, 3)
		assert.Equal(t, catalog.TopicID("greeting"), topics[0].ID)
		assert.Equal(t, catalog.TopicID("resolution"), topics[2].ID)
		assert.Equal(t, "Did the agent greet the customer?", topics[0].Guide)
		assert.Equal(t, map[catalog.TopicID]string{
			"greeting":   "Greeted the customer > as scripted.",
			"resolution": "Issue resolved.",
		}, snap.Defaults)
	})
}

func TestPointOperations(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, found, err := s.Lookup(ctx, "ana", "tone")
		require.NoError(t, err)
		assert.False(t, found)

		assert.ErrorIs(t, s.Update(ctx, "ana", "tone", "x"), ErrNotFound)
		require.NoError(t, s.Insert(ctx, "ana", "tone", "calm"))
		assert.ErrorIs(t, s.Insert(ctx, "ana", "tone", "again"), comments.ErrDuplicate)
		require.NoError(t, s.Update(ctx, "ana", "tone", "calmer"))

		rec, found, err := s.Lookup(ctx, "ana", "tone")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "calmer", rec.Text)

		_, found, err = s.Lookup(ctx, "bia", "tone")
		require.NoError(t, err)
		assert.False(t, found, "overrides are per user")

		list, err := s.ListPersonalized(ctx, "ana")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, catalog.TopicID("tone"), list[0].TopicID)
	})
}

func TestResolverUpsertIsIdempotent(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.ImportSeed(ctx, testSeed(t))
		require.NoError(t, err)
		r := comments.NewResolver(catalog.Load(ctx, s), s)

		require.NoError(t, r.Upsert(ctx, "greeting", "ana", "X"))
		require.NoError(t, r.Upsert(ctx, "greeting", "ana", "X"))

		list, err := s.ListPersonalized(ctx, "ana")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "X", list[0].Text)

		fresh := comments.NewResolver(catalog.Load(ctx, s), s)
		assert.Equal(t, "X", fresh.Resolve(ctx, "greeting", "ana"))
		assert.Equal(t, "Greeted the customer > as scripted.", fresh.Resolve(ctx, "greeting", "bia"))
	})
}

func TestDefaultChangeStillShadowedByOverride(t *testing.T) {
	ctx := context.Background()
	s := openSQL(t)
	_, err := s.ImportSeed(ctx, testSeed(t))
	require.NoError(t, err)
	require.NoError(t, s.UpsertPersonalized(ctx, "ana", "greeting", "mine"))

	changed := testSeed(t)
	changed.Topics[0].DefaultComment = "New default."
	_, err = s.ImportSeed(ctx, changed)
	require.NoError(t, err)

	r := comments.NewResolver(catalog.Load(ctx, s), s)
	assert.Equal(t, "mine", r.Resolve(ctx, "greeting", "ana"))
	assert.Equal(t, "New default.", r.Resolve(ctx, "greeting", "bia"))
}

func TestReportsNewestFirst(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
		for i, id := range []string{"r1", "r2", "r3"} {
			_, err := s.SaveReport(ctx, report.Record{
				ID: id, UserID: "ana", ContactID: "C-1", Text: "t", CreatedAt: base.Add(time.Duration(i) * time.Hour),
			})
			require.NoError(t, err)
		}
		_, err := s.SaveReport(ctx, report.Record{ID: "other", UserID: "bia", Text: "t", CreatedAt: base})
		require.NoError(t, err)

		_, err = s.SaveReport(ctx, report.Record{ID: "r1", UserID: "ana", Text: "dup", CreatedAt: base})
		assert.Error(t, err)

		got, err := s.ListReports(ctx, "ana")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"r3", "r2", "r1"}, []string{got[0].ID, got[1].ID, got[2].ID})
		assert.True(t, got[0].CreatedAt.Equal(base.Add(2*time.Hour)))
	})
}

func TestReportsNewestFirstWithinOneSecond(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
		offsets := map[string]time.Duration{
			"whole":  0,
			"half":   500 * time.Millisecond,
			"later":  510 * time.Millisecond,
			"next":   time.Second,
			"latest": 1100 * time.Millisecond,
		}
		for id, off := range offsets {
			_, err := s.SaveReport(ctx, report.Record{ID: id, UserID: "ana", Text: "t", CreatedAt: base.Add(off)})
			require.NoError(t, err)
		}

		got, err := s.ListReports(ctx, "ana")
		require.NoError(t, err)
		ids := make([]string, 0, len(got))
		for _, rec := range got {
			ids = append(ids, rec.ID)
		}
		assert.Equal(t, []string{"latest", "next", "later", "half", "whole"}, ids)
		assert.True(t, got[3].CreatedAt.Equal(base.Add(500*time.Millisecond)))
	})
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "qatool.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.ImportSeed(context.Background(), testSeed(t))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	again, err := Open(path)
	require.NoError(t, err)
	defer again.Close()
	n, err := again.TopicCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
