// Package session holds per-user conversation state and the stores that
// persist it. A user has at most one active session; starting a new
// conversation replaces any in-progress one.
package session

import (
	"context"
	"errors"
	"time"
)

// Kind names the conversation definition that owns a session.
type Kind string

const (
	// KindNewProject is the guided project creation flow.
	KindNewProject Kind = "new_project"
	// KindUpdateProject is the progress update flow for an existing project.
	KindUpdateProject Kind = "update_project"
	// KindSearch is the project search flow.
	KindSearch Kind = "search"
)

// StateID identifies a single step inside a conversation definition.
// Identifiers are scoped to their Kind; the two pseudo-states below are
// shared by every conversation.
type StateID string

const (
	// StateDone marks a conversation that reached its terminal step.
	StateDone StateID = "done"
	// StateCancelled marks a conversation ended by an explicit cancel.
	StateCancelled StateID = "cancelled"
)

// Terminal reports whether the state ends the conversation.
func (s StateID) Terminal() bool {
	return s == StateDone || s == StateCancelled
}

// Session is one user's in-progress conversation plus the answers collected
// so far.
type Session struct {
	UserID    int64             `json:"user_id" db:"user_id"`
	Kind      Kind              `json:"kind" db:"kind"`
	State     StateID           `json:"state" db:"state"`
	Answers   map[string]string `json:"answers"`
	StartedAt time.Time         `json:"started_at" db:"started_at"`
}

// New creates a fresh session positioned at the conversation's entry state.
func New(userID int64, kind Kind, entry StateID) *Session {
	return &Session{
		UserID:    userID,
		Kind:      kind,
		State:     entry,
		Answers:   make(map[string]string),
		StartedAt: time.Now().UTC(),
	}
}

// SetAnswer records a validated value under the given field name.
func (s *Session) SetAnswer(field, value string) {
	if s.Answers == nil {
		s.Answers = make(map[string]string)
	}
	s.Answers[field] = value
}

// Answer returns a previously collected value.
func (s *Session) Answer(field string) (string, bool) {
	v, ok := s.Answers[field]
	return v, ok
}

// Clone returns a deep copy so stores never hand out aliased maps.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		cp.Answers[k] = v
	}
	return &cp
}

// ErrNotFound is returned by Store.Get when the user has no active session.
var ErrNotFound = errors.New("session: not found")

// Store maps user identity to the active session. Implementations must allow
// concurrent callers for different users without blocking each other;
// per-user serialization is the caller's job (see KeyedMutex).
type Store interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Put(ctx context.Context, userID int64, sess *Session) error
	Delete(ctx context.Context, userID int64) error
}
