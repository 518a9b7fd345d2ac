// Package comments resolves the explanatory text printed under each topic
// of a report and persists per-user overrides of that text.
//
// Precedence is: the user's personalized record, then the shared default
// record, then NotFoundText. Defaults are never written; overrides only
// shadow them.
package comments

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/mayerbet/QAtool/internal/catalog"
	"github.com/mayerbet/QAtool/internal/identity"
	"github.com/mayerbet/QAtool/internal/logging"
)

// NotFoundText stands in for a topic that has neither an override nor a
// default, so report synthesis never has to branch on absence.
const NotFoundText = "Comment not found."

// Effective is the text a user sees for a topic.
type Effective struct {
	TopicID      catalog.TopicID `json:"topic_id"`
	Label        string          `json:"label"`
	Text         string          `json:"text"`
	Personalized bool            `json:"personalized"`
}

// Resolver reads and writes comment records for one catalog snapshot.
//
// Overrides are read through to the backend on every call, so writes made
// by another process sharing the backend are visible immediately. known
// holds the last text confirmed by a write or a successful read and only
// answers when the backend lookup fails.
type Resolver struct {
	catalog  *catalog.Catalog
	defaults map[catalog.TopicID]string
	backend  Backend
	log      *logging.Logger

	mu    sync.Mutex
	known map[identity.UserID]map[catalog.TopicID]string
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithLogger routes lookup and write diagnostics to l.
func WithLogger(l *logging.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver builds a resolver over a catalog snapshot. backend may be nil,
// in which case only defaults resolve and Upsert fails.
func NewResolver(snap catalog.Snapshot, backend Backend, opts ...Option) *Resolver {
	cat := snap.Catalog
	if cat == nil {
		cat = catalog.Empty()
	}
	defaults := make(map[catalog.TopicID]string, len(snap.Defaults))
	for id, text := range snap.Defaults {
		defaults[id] = text
	}
	r := &Resolver{
		catalog:  cat,
		defaults: defaults,
		backend:  backend,
		log:      logging.NewNop(),
		known:    map[identity.UserID]map[catalog.TopicID]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Catalog returns the snapshot the resolver was built for.
func (r *Resolver) Catalog() *catalog.Catalog {
	return r.catalog
}

// Default returns the shared default text for a topic.
func (r *Resolver) Default(topic catalog.TopicID) (string, bool) {
	text, ok := r.defaults[topic]
	if !ok || text == "" {
		return "", false
	}
	return text, true
}

// Resolve returns the effective comment for (topic, user). It never fails:
// a backend error is logged and resolution falls back to the last known
// override, then to the default.
func (r *Resolver) Resolve(ctx context.Context, topic catalog.TopicID, user identity.UserID) string {
	if text, ok := r.personalized(ctx, topic, user); ok {
		return text
	}
	if text, ok := r.Default(topic); ok {
		return text
	}
	return NotFoundText
}

func (r *Resolver) personalized(ctx context.Context, topic catalog.TopicID, user identity.UserID) (string, bool) {
	if user.IsZero() || r.backend == nil {
		return "", false
	}
	rec, found, err := r.backend.Lookup(ctx, user, topic)
	if err != nil {
		r.log.Warn("personalized comment lookup failed",
			logging.String("user", user.String()),
			logging.String("topic", topic.String()),
			logging.Err(err))
		return r.lastKnown(user, topic)
	}
	r.remember(user, topic, rec.Text, found)
	return rec.Text, found
}

// overrides returns all of a user's overrides with a single list call when
// the backend supports it. ok is false when per-topic lookups are needed.
func (r *Resolver) overrides(ctx context.Context, user identity.UserID) (map[catalog.TopicID]string, bool) {
	lister, ok := r.backend.(Lister)
	if !ok || user.IsZero() {
		return nil, false
	}
	records, err := lister.ListPersonalized(ctx, user)
	if err != nil {
		r.log.Warn("listing personalized comments failed",
			logging.String("user", user.String()),
			logging.Err(err))
		return nil, false
	}
	out := make(map[catalog.TopicID]string, len(records))
	for _, rec := range records {
		out[rec.TopicID] = rec.Text
	}
	r.mu.Lock()
	r.known[user] = maps.Clone(out)
	r.mu.Unlock()
	return out, true
}

// Upsert stores text as the user's override for topic.
// The text is visible to this resolver as soon as the backend confirms it.
//
// Backends implementing AtomicUpserter get a single conditional write.
// Otherwise this is check-then-act (Lookup, then Update or Insert) and is
// not safe against a concurrent writer for the same (user, topic); a lost
// race surfaces as the backend's error, typically ErrDuplicate.
func (r *Resolver) Upsert(ctx context.Context, topic catalog.TopicID, user identity.UserID, text string) error {
	if user.IsZero() {
		return ErrUnauthenticated
	}
	if _, ok := r.catalog.Lookup(topic); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	if r.backend == nil {
		return fmt.Errorf("comments: no backend configured")
	}
	if err := r.write(ctx, topic, user, text); err != nil {
		r.log.Error("personalized comment write failed",
			logging.String("user", user.String()),
			logging.String("topic", topic.String()),
			logging.Err(err))
		return err
	}
	r.remember(user, topic, text, true)
	r.log.Info("personalized comment saved",
		logging.String("user", user.String()),
		logging.String("topic", topic.String()))
	return nil
}

func (r *Resolver) write(ctx context.Context, topic catalog.TopicID, user identity.UserID, text string) error {
	if atomic, ok := r.backend.(AtomicUpserter); ok {
		if err := atomic.UpsertPersonalized(ctx, user, topic, text); err != nil {
			return fmt.Errorf("comments: upsert %s/%s: %w", user, topic, err)
		}
		return nil
	}
	_, exists, err := r.backend.Lookup(ctx, user, topic)
	if err != nil {
		return fmt.Errorf("comments: lookup %s/%s: %w", user, topic, err)
	}
	if exists {
		if err := r.backend.Update(ctx, user, topic, text); err != nil {
			return fmt.Errorf("comments: update %s/%s: %w", user, topic, err)
		}
		return nil
	}
	if err := r.backend.Insert(ctx, user, topic, text); err != nil {
		return fmt.Errorf("comments: insert %s/%s: %w", user, topic, err)
	}
	return nil
}

// Effective lists every topic with the text the user would get, ordered
// by label.
func (r *Resolver) Effective(ctx context.Context, user identity.UserID) []Effective {
	topics := r.catalog.Topics()
	listed, bulk := r.overrides(ctx, user)
	out := make([]Effective, 0, len(topics))
	for _, t := range topics {
		var (
			text         string
			personalized bool
		)
		if bulk {
			text, personalized = listed[t.ID]
		} else {
			text, personalized = r.personalized(ctx, t.ID, user)
		}
		if !personalized {
			text = r.Resolve(ctx, t.ID, "")
		}
		out = append(out, Effective{TopicID: t.ID, Label: t.Label, Text: text, Personalized: personalized})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Label) < strings.ToLower(out[j].Label)
	})
	return out
}

func (r *Resolver) remember(user identity.UserID, topic catalog.TopicID, text string, present bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries, ok := r.known[user]
	if !ok {
		if !present {
			return
		}
		entries = map[catalog.TopicID]string{}
		r.known[user] = entries
	}
	if present {
		entries[topic] = text
	} else {
		delete(entries, topic)
	}
}

func (r *Resolver) lastKnown(user identity.UserID, topic catalog.TopicID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	text, ok := r.known[user][topic]
	return text, ok
}
