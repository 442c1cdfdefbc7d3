// Package webhook is the HTTP dispatcher: it receives Telegram webhook
// posts, lazily initializes the engine, and feeds parsed updates into the
// bot's handler chain. A parsed update is always acked with 200 so Telegram
// never redelivers it; only an uninitialized engine yields a retryable 503.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	tele "gopkg.in/telebot.v4"

	"github.com/loopline/trackbot/internal/config"
	"github.com/loopline/trackbot/internal/engine"
	"github.com/loopline/trackbot/internal/logger"
)

// maxUpdateBody bounds the accepted request body; Telegram updates are far
// smaller than this.
const maxUpdateBody = 1 << 20

// Server is the webhook HTTP listener.
type Server struct {
	cfg *config.Config
	mgr *engine.Manager
	srv *http.Server
}

// NewServer builds the listener and its routes.
func NewServer(cfg *config.Config, mgr *engine.Manager) *Server {
	s := &Server{cfg: cfg, mgr: mgr}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/", s.handleHealth)
	r.Head("/", s.handleHealth)
	r.Get("/ping", s.handleHealth)
	r.Post("/webhook", s.handleUpdate)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Webhook.Listen, cfg.Webhook.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the route tree.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until the context is cancelled, then drains in-flight
// requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.WEB.Info("listening",
			slog.String("event", "http.listen"),
			slog.String("addr", s.srv.Addr),
		)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleUpdate is the dispatch path: parse, ensure the engine, process,
// ack. Handler errors never surface as HTTP errors; by the time processing
// starts the update is considered consumed.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBody))
	if err != nil {
		webhookRequests.WithLabelValues("read_error").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "unreadable body"})
		return
	}

	var upd tele.Update
	if err := json.Unmarshal(body, &upd); err != nil {
		webhookRequests.WithLabelValues("parse_error").Inc()
		logger.WEB.Warn("bad update payload",
			slog.String("event", "update.parse_error"),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid update"})
		return
	}

	eng, err := s.mgr.EnsureReady(r.Context())
	if err != nil {
		initFailures.Inc()
		webhookRequests.WithLabelValues("init_error").Inc()
		logger.WEB.Error("engine not ready",
			slog.String("event", "update.engine_unavailable"),
			slog.Int("update_id", upd.ID),
			slog.String("error", err.Error()),
		)
		// Retryable: Telegram will redeliver once the engine can build.
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "message": "initializing"})
		return
	}

	eng.ProcessUpdate(upd)

	webhookRequests.WithLabelValues("ok").Inc()
	webhookDuration.Observe(time.Since(start).Seconds())
	logger.WEB.Debug("update dispatched",
		slog.String("event", "update.dispatched"),
		slog.Int("update_id", upd.ID),
		slog.Duration("took", logger.Took(start)),
	)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
