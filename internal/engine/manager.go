package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/loopline/trackbot/internal/config"
	"github.com/loopline/trackbot/internal/logger"
)

// BuildFunc constructs an engine; replaceable in tests.
type BuildFunc func(ctx context.Context, cfg *config.Config) (*Engine, error)

// attempt is one in-flight build. All callers that joined it observe the
// same outcome through the done channel.
type attempt struct {
	done chan struct{}
	eng  *Engine
	err  error
}

// Manager guards lazy engine construction. At most one build runs at a
// time; concurrent EnsureReady callers block on that build instead of
// starting their own. A failed build resets the manager to uninitialized so
// a later call retries.
type Manager struct {
	mu      sync.Mutex
	cfg     *config.Config
	build   BuildFunc
	ready   *Engine
	pending *attempt
}

// NewManager creates a manager. A nil build falls back to Build.
func NewManager(cfg *config.Config, build BuildFunc) *Manager {
	if build == nil {
		build = Build
	}
	return &Manager{cfg: cfg, build: build}
}

// EnsureReady returns the engine, building it on first use. Callers whose
// context expires stop waiting, but a build already underway runs to
// completion and its result is kept for the next caller.
func (m *Manager) EnsureReady(ctx context.Context) (*Engine, error) {
	m.mu.Lock()
	if m.ready != nil {
		eng := m.ready
		m.mu.Unlock()
		return eng, nil
	}
	if m.pending != nil {
		at := m.pending
		m.mu.Unlock()
		select {
		case <-at.done:
			return at.eng, at.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	at := &attempt{done: make(chan struct{})}
	m.pending = at
	m.mu.Unlock()

	// The build outlives the triggering request: its result is shared with
	// every joiner and cached process-wide, so a client disconnect must not
	// abort it.
	eng, err := m.build(context.WithoutCancel(ctx), m.cfg)
	at.eng, at.err = eng, err
	close(at.done)

	m.mu.Lock()
	m.pending = nil
	if err == nil {
		m.ready = eng
	}
	m.mu.Unlock()

	if err != nil {
		logger.L.Error("engine build failed",
			slog.String("event", "engine.build.fail"),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return eng, nil
}

// Ready returns the engine if it has been built, without triggering a build.
func (m *Manager) Ready() (*Engine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready, m.ready != nil
}

// Shutdown closes the engine if one was built.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	eng := m.ready
	m.ready = nil
	m.mu.Unlock()
	if eng != nil {
		eng.Close()
	}
}
