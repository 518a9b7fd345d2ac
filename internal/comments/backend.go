package comments

import (
	"context"
	"errors"
	"time"

	"github.com/mayerbet/QAtool/internal/catalog"
	"github.com/mayerbet/QAtool/internal/identity"
)

var (
	// ErrUnauthenticated is returned when an override is written without a user.
	ErrUnauthenticated = errors.New("comments: no authenticated user")
	// ErrUnknownTopic is returned when an override targets a topic outside the catalog.
	ErrUnknownTopic = errors.New("comments: unknown topic")
	// ErrDuplicate is what a Backend returns when Insert hits an existing
	// (user, topic) record.
	ErrDuplicate = errors.New("comments: personalized comment already exists")
)

// Record is a personalized comment owned by one user.
type Record struct {
	UserID    identity.UserID `json:"user_id"`
	TopicID   catalog.TopicID `json:"topic_id"`
	Text      string          `json:"text"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Backend is the persistence collaborator for personalized comments. It
// offers point operations only; no batching or transactions are assumed.
type Backend interface {
	Lookup(ctx context.Context, user identity.UserID, topic catalog.TopicID) (Record, bool, error)
	Update(ctx context.Context, user identity.UserID, topic catalog.TopicID, text string) error
	Insert(ctx context.Context, user identity.UserID, topic catalog.TopicID, text string) error
}

// AtomicUpserter is implemented by backends that can insert-or-update a
// (user, topic) record in a single conditional write.
type AtomicUpserter interface {
	UpsertPersonalized(ctx context.Context, user identity.UserID, topic catalog.TopicID, text string) error
}

// Lister is implemented by backends that can list a user's overrides.
type Lister interface {
	ListPersonalized(ctx context.Context, user identity.UserID) ([]Record, error)
}
