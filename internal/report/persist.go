package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mayerbet/QAtool/internal/identity"
)

var (
	// ErrUnauthenticated stops a save without a user.
	ErrUnauthenticated = errors.New("report: no authenticated user")
	// ErrEmpty stops a save of blank text.
	ErrEmpty = errors.New("report: nothing to save")
)

// Record is a saved report.
type Record struct {
	ID            string          `json:"id"`
	UserID        identity.UserID `json:"user_id"`
	EvaluatorName string          `json:"evaluator_name,omitempty"`
	ContactID     string          `json:"contact_id,omitempty"`
	Text          string          `json:"text"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Saver stores report records. It is called once per explicit save.
type Saver interface {
	SaveReport(ctx context.Context, rec Record) (Record, error)
}

// Persister stamps and forwards records to a Saver.
type Persister struct {
	saver Saver
	now   func() time.Time
	newID func() string
}

// PersisterOption customizes a Persister.
type PersisterOption func(*Persister)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) PersisterOption {
	return func(p *Persister) {
		if now != nil {
			p.now = now
		}
	}
}

// WithIDs overrides the record id generator.
func WithIDs(newID func() string) PersisterOption {
	return func(p *Persister) {
		if newID != nil {
			p.newID = newID
		}
	}
}

// NewPersister wraps saver.
func NewPersister(saver Saver, opts ...PersisterOption) *Persister {
	p := &Persister{
		saver: saver,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Metadata is what the evaluator types next to the report.
type Metadata struct {
	EvaluatorName string `json:"evaluator_name,omitempty" yaml:"evaluator_name,omitempty"`
	ContactID     string `json:"contact_id,omitempty" yaml:"contact_id,omitempty"`
}

// Save persists text for user. Nothing is written without a user or with
// blank text, and a failed write is returned as-is without retry.
func (p *Persister) Save(ctx context.Context, user identity.UserID, meta Metadata, text string) (Record, error) {
	if user.IsZero() {
		return Record{}, ErrUnauthenticated
	}
	if strings.TrimSpace(text) == "" {
		return Record{}, ErrEmpty
	}
	if p == nil || p.saver == nil {
		return Record{}, fmt.Errorf("report: no saver configured")
	}
	rec := Record{
		ID:            p.newID(),
		UserID:        user,
		EvaluatorName: strings.TrimSpace(meta.EvaluatorName),
		ContactID:     strings.TrimSpace(meta.ContactID),
		Text:          text,
		CreatedAt:     p.now().UTC(),
	}
	saved, err := p.saver.SaveReport(ctx, rec)
	if err != nil {
		return Record{}, fmt.Errorf("report: save: %w", err)
	}
	return saved, nil
}
