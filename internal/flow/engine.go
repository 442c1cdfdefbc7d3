package flow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/loopline/trackbot/internal/logger"
	"github.com/loopline/trackbot/internal/session"
)

// User-facing fallback texts. Conversation-specific copy lives in the
// definitions; these cover the engine's own failure paths.
const (
	msgExpectText   = "Please reply with a text message."
	msgExpectChoice = "Please choose one of the options above."
	msgStale        = "Your previous conversation is no longer available. Please start over."
	msgFailed       = "An error occurred. Please try again later."
	msgCancelled    = "Cancelled. Nothing was saved."
)

// Result is the outcome of feeding one event to the engine. Prompt is the
// message to deliver; Done reports that the conversation ended, whether by
// completion or by a terminal failure.
type Result struct {
	Done   bool
	Prompt *Prompt
}

// Engine interprets registered conversation definitions against a session
// store. All methods are safe for concurrent use; events for the same user
// are serialized, events for different users proceed in parallel.
type Engine struct {
	reg   *Registry
	store session.Store
	locks *session.KeyedMutex
}

// NewEngine builds an Engine over the given registry and store.
func NewEngine(reg *Registry, store session.Store) *Engine {
	return &Engine{
		reg:   reg,
		store: store,
		locks: session.NewKeyedMutex(),
	}
}

// Start begins a conversation of the given kind, discarding any conversation
// the user already had in progress. On success it returns the entry prompt
// and the session is persisted; on error nothing is stored.
func (e *Engine) Start(ctx context.Context, userID int64, kind session.Kind) (*Prompt, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	def, err := e.reg.Definition(kind)
	if err != nil {
		return nil, err
	}
	if err := e.store.Delete(ctx, userID); err != nil && !errors.Is(err, session.ErrNotFound) {
		return nil, err
	}

	sess := session.New(userID, kind, def.Entry)
	prompt, err := def.States[def.Entry].Prompt(ctx, sess)
	if err != nil {
		logger.Warn(ctx, "flow", "start.abort",
			slog.String("kind", string(kind)),
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()))
		return nil, err
	}
	if err := e.store.Put(ctx, userID, sess); err != nil {
		return nil, err
	}
	logger.Info(ctx, "flow", "start",
		slog.String("kind", string(kind)),
		slog.String("state", string(def.Entry)),
		slog.Int64("user_id", userID))
	return &prompt, nil
}

// HandleEvent feeds one unit of user input to the user's active conversation.
// It returns ErrNoSession when the user has nothing in progress. Store
// failures are returned as errors; everything else is resolved into a Result
// so the caller always has something to send.
func (e *Engine) HandleEvent(ctx context.Context, ev Event) (Result, error) {
	unlock := e.locks.Lock(ev.UserID)
	defer unlock()

	sess, err := e.store.Get(ctx, ev.UserID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return Result{}, ErrNoSession
		}
		return Result{}, err
	}

	spec, err := e.reg.Spec(sess.Kind, sess.State)
	if err != nil {
		// Stale or corrupted session: definitions changed underneath it.
		return e.end(ctx, sess, msgStale, "event.stale", err)
	}

	if ev.Input != spec.Input {
		return e.reprompt(ctx, sess, spec, shapeHint(spec.Input))
	}

	value := ev.Value()
	if spec.Validate != nil {
		v, verr := spec.Validate(ctx, sess, value)
		if verr != nil {
			var invalid *ValidationError
			if errors.As(verr, &invalid) {
				logger.Debug(ctx, "flow", "event.invalid",
					slog.String("kind", string(sess.Kind)),
					slog.String("state", string(sess.State)),
					slog.Int64("user_id", ev.UserID))
				return e.reprompt(ctx, sess, spec, invalid.Msg)
			}
			return e.end(ctx, sess, endText(verr), "event.abort", verr)
		}
		value = v
	}
	if spec.Field != "" {
		sess.SetAnswer(spec.Field, value)
	}

	next := spec.Next(sess, value)
	if next.Terminal() {
		if next == session.StateCancelled {
			return e.end(ctx, sess, msgCancelled, "event.cancelled", nil)
		}
		return e.finish(ctx, sess)
	}

	nextSpec, err := e.reg.Spec(sess.Kind, next)
	if err != nil {
		return e.end(ctx, sess, msgStale, "event.stale", err)
	}
	sess.State = next
	prompt, err := nextSpec.Prompt(ctx, sess)
	if err != nil {
		return e.end(ctx, sess, endText(err), "event.abort", err)
	}
	if err := e.store.Put(ctx, ev.UserID, sess); err != nil {
		return Result{}, err
	}
	logger.Debug(ctx, "flow", "event.advance",
		slog.String("kind", string(sess.Kind)),
		slog.String("state", string(next)),
		slog.Int64("user_id", ev.UserID))
	return Result{Prompt: &prompt}, nil
}

// Cancel ends the user's active conversation, if any. It reports whether
// there was one to cancel.
func (e *Engine) Cancel(ctx context.Context, userID int64) (bool, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	sess, err := e.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := e.store.Delete(ctx, userID); err != nil && !errors.Is(err, session.ErrNotFound) {
		return false, err
	}
	logger.Info(ctx, "flow", "cancel",
		slog.String("kind", string(sess.Kind)),
		slog.String("state", string(sess.State)),
		slog.Int64("user_id", userID))
	return true, nil
}

// InProgress reports whether the user has an active conversation.
func (e *Engine) InProgress(ctx context.Context, userID int64) bool {
	_, err := e.store.Get(ctx, userID)
	return err == nil
}

// finish runs the definition's terminal side effect exactly once and clears
// the session. The session is cleared even when the side effect fails, so a
// retried event can never replay it.
func (e *Engine) finish(ctx context.Context, sess *session.Session) (Result, error) {
	def, err := e.reg.Definition(sess.Kind)
	if err != nil {
		return e.end(ctx, sess, msgStale, "finish.stale", err)
	}
	sess.State = session.StateDone

	var prompt Prompt
	var doneErr error
	if def.OnDone != nil {
		prompt, doneErr = def.OnDone(ctx, sess)
	}
	if err := e.store.Delete(ctx, sess.UserID); err != nil && !errors.Is(err, session.ErrNotFound) {
		logger.Error(ctx, "flow", "finish.delete.fail",
			slog.Int64("user_id", sess.UserID),
			slog.String("error", err.Error()))
	}
	if doneErr != nil {
		logger.Error(ctx, "flow", "finish.fail",
			slog.String("kind", string(sess.Kind)),
			slog.Int64("user_id", sess.UserID),
			slog.String("error", doneErr.Error()))
		return Result{Done: true, Prompt: &Prompt{Text: endText(doneErr)}}, nil
	}
	logger.Info(ctx, "flow", "finish",
		slog.String("kind", string(sess.Kind)),
		slog.Int64("user_id", sess.UserID))
	return Result{Done: true, Prompt: &prompt}, nil
}

// reprompt re-emits the current state's prompt with a hint on top. The
// session does not move. A prompt producer failing on re-entry ends the
// conversation like any other producer failure.
func (e *Engine) reprompt(ctx context.Context, sess *session.Session, spec StateSpec, hint string) (Result, error) {
	prompt, err := spec.Prompt(ctx, sess)
	if err != nil {
		return e.end(ctx, sess, endText(err), "reprompt.abort", err)
	}
	if hint != "" {
		prompt.Text = hint + "\n\n" + prompt.Text
	}
	return Result{Prompt: &prompt}, nil
}

// end deletes the session and resolves the event into a terminal Result.
func (e *Engine) end(ctx context.Context, sess *session.Session, text, event string, cause error) (Result, error) {
	if err := e.store.Delete(ctx, sess.UserID); err != nil && !errors.Is(err, session.ErrNotFound) {
		return Result{}, err
	}
	attrs := []slog.Attr{
		slog.String("kind", string(sess.Kind)),
		slog.String("state", string(sess.State)),
		slog.Int64("user_id", sess.UserID),
	}
	if cause != nil {
		attrs = append(attrs, slog.String("error", cause.Error()))
		logger.Warn(ctx, "flow", event, attrs...)
	} else {
		logger.Info(ctx, "flow", event, attrs...)
	}
	return Result{Done: true, Prompt: &Prompt{Text: text}}, nil
}

// endText picks the user-visible message for a conversation-ending error.
func endText(err error) string {
	var ee *EndError
	if errors.As(err, &ee) {
		return ee.Msg
	}
	return msgFailed
}

func shapeHint(expected Input) string {
	if expected == InputChoice {
		return msgExpectChoice
	}
	return msgExpectText
}
