// Package flow implements the conversation engine: declarative state tables
// interpreted by one generic transition engine, with per-user serialization
// around every session read-modify-write.
package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/loopline/trackbot/internal/session"
)

// Input is the shape of user input a state expects.
type Input int

const (
	// InputText expects a free-form text message.
	InputText Input = iota
	// InputChoice expects a selection from the offered options.
	InputChoice
)

// Event is one unit of user input, consumed exactly once.
type Event struct {
	UserID int64
	Input  Input
	// Text carries the message body for InputText events.
	Text string
	// Choice carries the selected option token for InputChoice events.
	Choice string
}

// Value returns the payload matching the event's input shape.
func (e Event) Value() string {
	if e.Input == InputChoice {
		return e.Choice
	}
	return e.Text
}

// Choice is one option of a fixed menu. The token round-trips through the
// transport and comes back as the next event's selection.
type Choice struct {
	Token string
	Label string
}

// Prompt is an outbound message, optionally with a fixed option menu.
type Prompt struct {
	Text    string
	Choices []Choice
	// Markdown requests markdown rendering on the transport.
	Markdown bool
}

// PromptFunc produces the outbound prompt for a state when it is entered.
// Failures here end the conversation; they are never retried in a loop.
type PromptFunc func(ctx context.Context, sess *session.Session) (Prompt, error)

// Validator checks and normalizes raw input. A *ValidationError keeps the
// session in place for a retry; any other error ends the conversation.
type Validator func(ctx context.Context, sess *session.Session, raw string) (string, error)

// StateSpec declares one conversation step.
type StateSpec struct {
	// Field names the answers key the validated value is stored under.
	// Empty means the value is consumed but not recorded.
	Field    string
	Input    Input
	Prompt   PromptFunc
	Validate Validator
	// Next resolves the successor state from the committed value.
	Next func(sess *session.Session, value string) session.StateID
}

// Definition is the declarative table of states for one conversation kind.
type Definition struct {
	Kind   session.Kind
	Entry  session.StateID
	States map[session.StateID]StateSpec
	// OnDone is the terminal side effect, run exactly once when the
	// conversation completes. It returns the confirmation message.
	OnDone func(ctx context.Context, sess *session.Session) (Prompt, error)
}

// To returns a Next func for a fixed successor.
func To(id session.StateID) func(*session.Session, string) session.StateID {
	return func(*session.Session, string) session.StateID { return id }
}

// ValidationError is a recoverable per-field failure: the user is re-prompted
// and the session does not move.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Invalidf builds a ValidationError.
func Invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// EndError ends the conversation with a user-visible explanation, e.g. when
// a dynamic option list turns out empty or a selection fails an ownership
// check. The session is deleted and nothing is persisted.
type EndError struct {
	Msg string
}

func (e *EndError) Error() string { return e.Msg }

// Endf builds an EndError.
func Endf(format string, args ...any) error {
	return &EndError{Msg: fmt.Sprintf(format, args...)}
}

var (
	// ErrUnknownKind indicates a session referencing an unregistered conversation.
	ErrUnknownKind = errors.New("flow: unknown conversation kind")
	// ErrUnknownState indicates a corrupted or stale session state.
	ErrUnknownState = errors.New("flow: unknown state")
	// ErrNoSession indicates an event for a user without an active conversation.
	ErrNoSession = errors.New("flow: no active session")
)
