package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/loopline/trackbot/internal/config"
	"github.com/loopline/trackbot/internal/engine"
)

// offlineEngine builds an engine around an offline bot so updates can be
// processed without the Telegram API.
func offlineEngine(t *testing.T) *engine.Engine {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Token: "test-token", Offline: true})
	require.NoError(t, err)
	return &engine.Engine{Bot: bot}
}

func newTestServer(t *testing.T, build engine.BuildFunc) *Server {
	t.Helper()
	cfg := &config.Config{}
	return NewServer(cfg, engine.NewManager(cfg, build))
}

func workingServer(t *testing.T) *Server {
	eng := offlineEngine(t)
	return newTestServer(t, func(context.Context, *config.Config) (*engine.Engine, error) {
		return eng, nil
	})
}

func TestHealthEndpoints(t *testing.T) {
	s := workingServer(t)
	for _, path := range []string{"/", "/ping"} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String(), path)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := workingServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookRejectsInvalidPayload(t *testing.T) {
	s := workingServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid update")
}

func TestWebhookRetryableWhileInitializing(t *testing.T) {
	s := newTestServer(t, func(context.Context, *config.Config) (*engine.Engine, error) {
		return nil, errors.New("airtable unreachable")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"update_id":1}`))
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"initializing"}`, rec.Body.String())
}

func TestWebhookAcksParsedUpdate(t *testing.T) {
	s := workingServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"update_id":7}`))
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWebhookRecoversAfterFailedInit(t *testing.T) {
	eng := offlineEngine(t)
	calls := 0
	s := newTestServer(t, func(context.Context, *config.Config) (*engine.Engine, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return eng, nil
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"update_id":1}`)))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"update_id":2}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, calls)
}
