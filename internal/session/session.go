// Package session ties one evaluator's checklist, report buffer and
// comment overrides together. The terminal UI owns a single Session; the
// HTTP server keeps one per id.
//
// A Session is not safe for concurrent use. Callers serialize access.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mayerbet/QAtool/internal/catalog"
	"github.com/mayerbet/QAtool/internal/checklist"
	"github.com/mayerbet/QAtool/internal/comments"
	"github.com/mayerbet/QAtool/internal/identity"
	"github.com/mayerbet/QAtool/internal/logbook"
	"github.com/mayerbet/QAtool/internal/logging"
	"github.com/mayerbet/QAtool/internal/report"
)

var (
	// ErrPersistence marks failures of a remote write. In-memory state is
	// left as it was before the call.
	ErrPersistence = errors.New("session: persistence failure")
	// ErrUnknownTopic rejects answers for topics outside the catalog.
	ErrUnknownTopic = errors.New("session: unknown topic")
)

// Deps are the collaborators shared between sessions.
type Deps struct {
	Resolver  *comments.Resolver
	Persister *report.Persister
	Journal   *logbook.Logbook
	Logger    *logging.Logger
	// Warnings from loading the catalog, surfaced once per session.
	Warnings []error
}

// Session is one evaluator working through one contact.
type Session struct {
	id        string
	user      identity.UserID
	createdAt time.Time

	catalog   *catalog.Catalog
	answers   *checklist.Store
	resolver  *comments.Resolver
	persister *report.Persister
	buffer    report.Buffer
	meta      report.Metadata
	lastSaved *report.Record

	journal  *logbook.Logbook
	log      *logging.Logger
	warnings []error
}

// Option customizes a Session.
type Option func(*Session)

// WithID fixes the session id.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithClock fixes the creation time.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.createdAt = now()
		}
	}
}

// New starts a session for user. The user may be empty; reading and
// generating work, saving does not.
func New(user identity.UserID, deps Deps, opts ...Option) *Session {
	resolver := deps.Resolver
	if resolver == nil {
		resolver = comments.NewResolver(catalog.Snapshot{}, nil)
	}
	s := &Session{
		id:        uuid.NewString(),
		user:      identity.Normalize(user.String()),
		createdAt: time.Now(),
		catalog:   resolver.Catalog(),
		answers:   checklist.NewStore(),
		resolver:  resolver,
		persister: deps.Persister,
		journal:   deps.Journal,
		log:       deps.Logger,
		warnings:  append([]error(nil), deps.Warnings...),
	}
	if s.log == nil {
		s.log = logging.NewNop()
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.log = s.log.With(logging.String("session", s.id), logging.String("user", s.user.String()))
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) User() identity.UserID {
	return s.user
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Catalog returns the snapshot the session was started with.
func (s *Session) Catalog() *catalog.Catalog {
	return s.catalog
}

func (s *Session) Metadata() report.Metadata {
	return s.meta
}

// ReportText returns the current, possibly edited, report text.
func (s *Session) ReportText() string {
	return s.buffer.Text()
}

func (s *Session) Generated() bool {
	return s.buffer.Generated()
}

// Warnings lists catalog load problems.
func (s *Session) Warnings() []error {
	return append([]error(nil), s.warnings...)
}

// LastSaved returns the last record saved in this session, or nil.
func (s *Session) LastSaved() *report.Record {
	return s.lastSaved
}

func (s *Session) Resolver() *comments.Resolver {
	return s.resolver
}

// Answer returns the answer for a topic.
func (s *Session) Answer(topic catalog.TopicID) checklist.Answer {
	a, _ := s.answers.Answer(topic)
	return a
}

// Answers returns a copy of every answer.
func (s *Session) Answers() map[catalog.TopicID]checklist.Answer {
	return s.answers.Snapshot()
}

// Mark records a marking for a catalog topic.
func (s *Session) Mark(topic catalog.TopicID, m checklist.Marking) error {
	t, ok := s.catalog.Lookup(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	if err := s.answers.SetMarking(topic, m); err != nil {
		return err
	}
	s.journal.Info("marked %q as %s", t.Label, m)
	return nil
}

// Note replaces the note attached to a catalog topic.
func (s *Session) Note(topic catalog.TopicID, note string) error {
	if _, ok := s.catalog.Lookup(topic); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	s.answers.SetNote(topic, note)
	return nil
}

// SetMetadata records the evaluator name and contact id saved with the
// report.
func (s *Session) SetMetadata(meta report.Metadata) {
	s.meta = meta
}

// ClearAll empties the checklist, the report and its metadata.
func (s *Session) ClearAll() {
	s.answers.ClearAll()
	s.buffer.Reset()
	s.meta = report.Metadata{}
	s.journal.Info("checklist cleared")
}

// Generate synthesizes the report from the current answers, replacing
// whatever the buffer held.
func (s *Session) Generate(ctx context.Context) report.Report {
	r := report.Synthesize(ctx, s.catalog, s.answers.Snapshot(), s.resolver, s.user)
	s.buffer.Generate(r)
	s.journal.Info("report generated with %d block(s)", len(r.Lines))
	s.log.Debug("report generated", logging.Int("blocks", len(r.Lines)))
	return r
}

// EditReport replaces the generated text.
func (s *Session) EditReport(text string) error {
	return s.buffer.Edit(text)
}

// Save persists the current report text. It is only ever triggered by the
// user and is not retried.
func (s *Session) Save(ctx context.Context) (report.Record, error) {
	if !s.buffer.Generated() {
		return report.Record{}, report.ErrNotGenerated
	}
	if s.persister == nil {
		return report.Record{}, fmt.Errorf("%w: no report store configured", ErrPersistence)
	}
	rec, err := s.persister.Save(ctx, s.user, s.meta, s.buffer.Text())
	if err != nil {
		if errors.Is(err, report.ErrUnauthenticated) || errors.Is(err, report.ErrEmpty) {
			return report.Record{}, err
		}
		s.journal.Error("saving report failed: %v", err)
		s.log.Error("report save failed", logging.Err(err))
		return report.Record{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.lastSaved = &rec
	s.journal.Info("report %s saved (contact %q)", rec.ID, rec.ContactID)
	s.log.Info("report saved", logging.String("report", rec.ID))
	return rec, nil
}

// SaveComment stores the user's override for a topic.
func (s *Session) SaveComment(ctx context.Context, topic catalog.TopicID, text string) error {
	err := s.resolver.Upsert(ctx, topic, s.user, text)
	switch {
	case err == nil:
		s.journal.Info("personalized comment saved for %s", topic)
		return nil
	case errors.Is(err, comments.ErrUnauthenticated), errors.Is(err, comments.ErrUnknownTopic):
		return err
	default:
		s.journal.Error("saving comment for %s failed: %v", topic, err)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
}

// Comments lists every topic with the user's effective comment.
func (s *Session) Comments(ctx context.Context) []comments.Effective {
	return s.resolver.Effective(ctx, s.user)
}
