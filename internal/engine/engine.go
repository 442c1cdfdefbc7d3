// Package engine assembles the application core: the Telegram bot, the
// conversation engine, the session store, and the outbound sender. A
// process holds at most one engine; Manager guards its construction.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/loopline/trackbot/internal/airtable"
	"github.com/loopline/trackbot/internal/config"
	"github.com/loopline/trackbot/internal/database"
	"github.com/loopline/trackbot/internal/flow"
	"github.com/loopline/trackbot/internal/logger"
	"github.com/loopline/trackbot/internal/session"
	"github.com/loopline/trackbot/internal/telegram"
	"github.com/loopline/trackbot/internal/tracker"
)

// Engine is the fully assembled application core. Every component it holds
// is ready to use; callers never observe a half-built engine.
type Engine struct {
	Bot        *tele.Bot
	Flow       *flow.Engine
	Tracker    *tracker.Service
	Dispatcher *telegram.Dispatcher
	Registry   *telegram.Registry

	closers []func() error
}

// ProcessUpdate feeds a parsed Telegram update through the bot's handler
// chain. It blocks until the update's handler returns; outbound replies are
// queued on the dispatcher and do not block processing.
func (e *Engine) ProcessUpdate(u tele.Update) {
	e.Bot.ProcessUpdate(u)
}

// Close shuts down the outbound sender and releases store connections.
func (e *Engine) Close() {
	if e.Dispatcher != nil {
		e.Dispatcher.Close()
	}
	for _, closeFn := range e.closers {
		if err := closeFn(); err != nil {
			logger.L.Warn("engine close",
				slog.String("event", "engine.close.fail"),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Build constructs the engine from configuration. The telebot constructor
// performs the Telegram identity handshake, so a bad token or unreachable
// API fails the build rather than the first update.
func Build(ctx context.Context, cfg *config.Config) (*Engine, error) {
	start := time.Now()

	bot, err := telegram.NewBot(cfg)
	if err != nil {
		return nil, err
	}

	store, closers, err := buildSessionStore(cfg)
	if err != nil {
		return nil, err
	}

	records := airtable.New(cfg.Airtable)
	svc := tracker.NewService(records)

	flowReg := flow.NewRegistry()
	if err := svc.Register(flowReg); err != nil {
		return nil, fmt.Errorf("engine: register conversations: %w", err)
	}
	flowEng := flow.NewEngine(flowReg, store)

	disp := telegram.NewDispatcher(telegram.DispatcherOptions{})

	reg := telegram.NewRegistry()
	telegram.NewHandlers(flowEng, svc, disp).Register(reg)

	for _, mw := range telegram.DefaultMiddlewares(cfg, nil) {
		bot.Use(mw.Use)
	}
	telegram.AttachRoutes(bot, reg)
	telegram.InitBotCommands(bot, reg)

	kinds := make([]string, 0, len(flowReg.Kinds()))
	for _, kind := range flowReg.Kinds() {
		kinds = append(kinds, string(kind))
	}
	flows, truncated := logger.SummarizeStrings(kinds, 10)
	logger.L.Info("engine ready",
		slog.String("event", "engine.build"),
		slog.String("backend", cfg.Sessions.Backend),
		slog.String("run_mode", cfg.Telegram.RunMode),
		slog.String("flows", flows),
		slog.Bool("flows_truncated", truncated),
		slog.Duration("took", logger.Took(start)),
	)

	return &Engine{
		Bot:        bot,
		Flow:       flowEng,
		Tracker:    svc,
		Dispatcher: disp,
		Registry:   reg,
		closers:    closers,
	}, nil
}

func buildSessionStore(cfg *config.Config) (session.Store, []func() error, error) {
	switch cfg.Sessions.Backend {
	case config.BackendRedis:
		rc := cfg.Sessions.Redis
		var opts []session.RedisOption
		if rc.TTLSeconds > 0 {
			opts = append(opts, session.WithTTL(time.Duration(rc.TTLSeconds)*time.Second))
		}
		store := session.NewRedisStore(rc.Addr, rc.Password, rc.DB, opts...)
		logger.SESS.Info("session store ready",
			slog.String("event", "session.backend"),
			slog.String("backend", config.BackendRedis),
			slog.String("addr", rc.Addr),
		)
		return store, []func() error{store.Close}, nil

	case config.BackendPostgres:
		db, err := database.Connect(cfg.Sessions.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := database.RunMigrations(cfg.Sessions.Database); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.SESS.Info("session store ready",
			slog.String("event", "session.backend"),
			slog.String("backend", config.BackendPostgres),
		)
		return session.NewPostgresStore(db), []func() error{db.Close}, nil

	default:
		logger.SESS.Info("session store ready",
			slog.String("event", "session.backend"),
			slog.String("backend", config.BackendMemory),
		)
		return session.NewMemoryStore(), nil, nil
	}
}
