// Package identity carries the current user's key through the app.
//
// QAtool never authenticates anyone. The key comes from an outside
// collaborator (config file, environment, HTTP header) and is treated as an
// opaque string.
package identity

import (
	"context"
	"errors"
	"strings"
)

// ErrNoIdentity is returned when no user key is available.
var ErrNoIdentity = errors.New("identity: no current user")

// UserID is an opaque user key.
type UserID string

// String returns the raw key.
func (u UserID) String() string { return string(u) }

// IsZero reports whether the key is empty after trimming.
func (u UserID) IsZero() bool { return strings.TrimSpace(string(u)) == "" }

// Normalize trims surrounding whitespace. No other validation is applied.
func Normalize(raw string) UserID {
	return UserID(strings.TrimSpace(raw))
}

// Provider supplies the current user.
type Provider interface {
	CurrentUser(ctx context.Context) (UserID, error)
}

// Static is a Provider returning a fixed key.
type Static UserID

// CurrentUser implements Provider.
func (s Static) CurrentUser(context.Context) (UserID, error) {
	id := Normalize(string(s))
	if id.IsZero() {
		return "", ErrNoIdentity
	}
	return id, nil
}

// Chain asks each provider in turn and returns the first key found.
type Chain []Provider

// CurrentUser implements Provider. It returns ErrNoIdentity when every
// provider comes up empty, and stops at the first other error.
func (c Chain) CurrentUser(ctx context.Context) (UserID, error) {
	for _, p := range c {
		if p == nil {
			continue
		}
		id, err := p.CurrentUser(ctx)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ErrNoIdentity) {
			return "", err
		}
	}
	return "", ErrNoIdentity
}
