package server

import (
	"sync"
	"time"

	"github.com/mayerbet/QAtool/internal/identity"
	"github.com/mayerbet/QAtool/internal/session"
)

// entry guards one session. Requests against the same session run one at
// a time; different sessions proceed in parallel.
type entry struct {
	mu       sync.Mutex
	sess     *session.Session
	lastUsed time.Time
}

// registry keeps live sessions by id.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
}

func newRegistry(ttl time.Duration, now func() time.Time) *registry {
	return &registry{sessions: map[string]*entry{}, ttl: ttl, now: now}
}

func (r *registry) add(s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	r.sessions[s.ID()] = &entry{sess: s, lastUsed: r.now()}
}

// with runs fn holding the session's lock. It reports false when the id
// is unknown or belongs to another user.
func (r *registry) with(id string, user identity.UserID, fn func(*session.Session)) bool {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if ok {
		e.lastUsed = r.now()
	}
	r.mu.Unlock()
	if !ok || e.sess.User() != user {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.sess)
	return true
}

func (r *registry) remove(id string, user identity.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok || e.sess.User() != user {
		return false
	}
	delete(r.sessions, id)
	return true
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *registry) pruneLocked() {
	if r.ttl <= 0 {
		return
	}
	cutoff := r.now().Add(-r.ttl)
	for id, e := range r.sessions {
		if e.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
		}
	}
}
