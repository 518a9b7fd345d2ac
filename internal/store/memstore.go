package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mayerbet/QAtool/internal/catalog"
	"github.com/mayerbet/QAtool/internal/comments"
	"github.com/mayerbet/QAtool/internal/identity"
	"github.com/mayerbet/QAtool/internal/report"
)

type commentKey struct {
	user  identity.UserID
	topic catalog.TopicID
}

// MemStore is an in-memory store. It offers only point operations for
// personalized comments, so the resolver drives it check-then-act.
type MemStore struct {
	mu       sync.Mutex
	topics   map[catalog.TopicID]catalog.Topic
	defaults map[string]string
	comments map[commentKey]comments.Record
	reports  []report.Record
	now      func() time.Time
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		topics:   map[catalog.TopicID]catalog.Topic{},
		defaults: map[string]string{},
		comments: map[commentKey]comments.Record{},
		now:      time.Now,
	}
}

// FetchTopics implements catalog.Source.
func (s *MemStore) FetchTopics(context.Context) ([]catalog.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.Topic, 0, len(s.topics))
	for _, t := range s.topics {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// FetchDefaultComments implements catalog.Source.
func (s *MemStore) FetchDefaultComments(context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.defaults))
	for k, v := range s.defaults {
		out[k] = v
	}
	return out, nil
}

// TopicCount returns how many topics are stored.
func (s *MemStore) TopicCount(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.topics), nil
}

// ImportSeed mirrors SQLStore.ImportSeed.
func (s *MemStore) ImportSeed(_ context.Context, seed catalog.Seed) (ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res ImportResult
	for _, t := range seed.CatalogTopics() {
		s.topics[t.ID] = t
		res.Topics++
	}
	for label, text := range seed.DefaultComments() {
		s.defaults[label] = text
		res.Defaults++
	}
	return res, nil
}

// Lookup implements comments.Backend.
func (s *MemStore) Lookup(_ context.Context, user identity.UserID, topic catalog.TopicID) (comments.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.comments[commentKey{user, topic}]
	return rec, ok, nil
}

// Update implements comments.Backend.
func (s *MemStore) Update(_ context.Context, user identity.UserID, topic catalog.TopicID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := commentKey{user, topic}
	rec, ok := s.comments[k]
	if !ok {
		return fmt.Errorf("store: update comment %s/%s: %w", user, topic, ErrNotFound)
	}
	rec.Text = text
	rec.UpdatedAt = s.now().UTC()
	s.comments[k] = rec
	return nil
}

// Insert implements comments.Backend.
func (s *MemStore) Insert(_ context.Context, user identity.UserID, topic catalog.TopicID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := commentKey{user, topic}
	if _, ok := s.comments[k]; ok {
		return fmt.Errorf("store: insert comment %s/%s: %w", user, topic, comments.ErrDuplicate)
	}
	s.comments[k] = comments.Record{UserID: user, TopicID: topic, Text: text, UpdatedAt: s.now().UTC()}
	return nil
}

// ListPersonalized implements comments.Lister.
func (s *MemStore) ListPersonalized(_ context.Context, user identity.UserID) ([]comments.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []comments.Record
	for k, rec := range s.comments {
		if k.user == user {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TopicID < out[j].TopicID })
	return out, nil
}

// SaveReport implements report.Saver.
func (s *MemStore) SaveReport(_ context.Context, rec report.Record) (report.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reports {
		if existing.ID == rec.ID {
			return report.Record{}, fmt.Errorf("store: report %s already saved", rec.ID)
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	s.reports = append(s.reports, rec)
	return rec, nil
}

// ListReports returns a user's saved reports, newest first.
func (s *MemStore) ListReports(_ context.Context, user identity.UserID) ([]report.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []report.Record
	for _, rec := range s.reports {
		if rec.UserID == user {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
