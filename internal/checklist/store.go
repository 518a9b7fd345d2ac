// Package checklist keeps the evaluator's answers for the current session.
//
// The store is sparse: a topic without an entry is unmarked. It does no I/O
// and is owned by exactly one session, so it carries no lock.
package checklist

import (
	"errors"
	"fmt"

	"github.com/mayerbet/QAtool/internal/catalog"
)

// ErrInvalidMarking rejects markings other than Error and NotApplicable.
var ErrInvalidMarking = errors.New("checklist: invalid marking")

// Answer is the evaluator's input for one topic.
type Answer struct {
	Marking Marking `json:"marking" yaml:"marking"`
	Note    string  `json:"note,omitempty" yaml:"note,omitempty"`
}

// Marked reports whether the answer will be rendered into a report.
func (a Answer) Marked() bool { return a.Marking != MarkingNone }

// Store maps topics to answers.
type Store struct {
	answers map[catalog.TopicID]Answer
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{answers: map[catalog.TopicID]Answer{}}
}

// SetMarking records a marking for the topic, keeping any note already
// typed. Setting the same marking twice changes nothing.
func (s *Store) SetMarking(id catalog.TopicID, m Marking) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidMarking, m)
	}
	s.ensure()
	current := s.answers[id]
	current.Marking = m
	s.answers[id] = current
	return nil
}

// SetNote replaces the note for the topic. A topic without an entry gets
// one with MarkingNone; the note stays out of reports until it is marked.
func (s *Store) SetNote(id catalog.TopicID, note string) {
	s.ensure()
	current := s.answers[id]
	current.Note = note
	s.answers[id] = current
}

// ClearAll drops every answer.
func (s *Store) ClearAll() {
	s.answers = map[catalog.TopicID]Answer{}
}

// Answer returns the topic's answer and whether an entry exists.
func (s *Store) Answer(id catalog.TopicID) (Answer, bool) {
	if s == nil || s.answers == nil {
		return Answer{}, false
	}
	a, ok := s.answers[id]
	return a, ok
}

// Len returns the number of entries, marked or not.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.answers)
}

// Marked returns how many entries carry a marking.
func (s *Store) Marked() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, a := range s.answers {
		if a.Marked() {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of the answers.
func (s *Store) Snapshot() map[catalog.TopicID]Answer {
	out := make(map[catalog.TopicID]Answer, s.Len())
	if s == nil {
		return out
	}
	for id, a := range s.answers {
		out[id] = a
	}
	return out
}

func (s *Store) ensure() {
	if s.answers == nil {
		s.answers = map[catalog.TopicID]Answer{}
	}
}
