package catalog

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Source is the external collaborator that supplies topics and the shared
// default comments. Default comments are keyed by topic label.
type Source interface {
	FetchTopics(ctx context.Context) ([]Topic, error)
	FetchDefaultComments(ctx context.Context) (map[string]string, error)
}

// Snapshot is everything a session reads from the catalog source at start.
type Snapshot struct {
	Catalog *Catalog
	// Defaults maps topic IDs to their default comment text.
	Defaults map[TopicID]string
	// Warnings lists fetch failures that were degraded to empty data.
	Warnings []error
}

// Load fetches topics and default comments concurrently. A failing fetch
// leaves its half of the snapshot empty and is reported in Warnings instead
// of failing the whole load.
func Load(ctx context.Context, src Source) Snapshot {
	snap := Snapshot{Catalog: Empty(), Defaults: map[TopicID]string{}}
	if src == nil {
		snap.Warnings = append(snap.Warnings, fmt.Errorf("catalog: no source configured"))
		return snap
	}

	var (
		topics     []Topic
		defaults   map[string]string
		topicErr   error
		defaultErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		topics, topicErr = src.FetchTopics(ctx)
		return nil
	})
	g.Go(func() error {
		defaults, defaultErr = src.FetchDefaultComments(ctx)
		return nil
	})
	_ = g.Wait()

	if topicErr != nil {
		snap.Warnings = append(snap.Warnings, fmt.Errorf("catalog: fetch topics: %w", topicErr))
	} else {
		cat, err := New(topics)
		if err != nil {
			snap.Warnings = append(snap.Warnings, err)
		} else {
			snap.Catalog = cat
		}
	}
	if defaultErr != nil {
		snap.Warnings = append(snap.Warnings, fmt.Errorf("catalog: fetch default comments: %w", defaultErr))
		return snap
	}
	for label, text := range defaults {
		id, ok := snap.Catalog.IDForLabel(label)
		if !ok {
			continue
		}
		snap.Defaults[id] = text
	}
	return snap
}
