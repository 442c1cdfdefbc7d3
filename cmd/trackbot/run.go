package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loopline/trackbot/internal/config"
	"github.com/loopline/trackbot/internal/engine"
	"github.com/loopline/trackbot/internal/logger"
	"github.com/loopline/trackbot/internal/telegram"
	"github.com/loopline/trackbot/internal/webhook"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot (webhook or long-poll mode per config)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		mgr := engine.NewManager(cfg, nil)
		defer mgr.Shutdown()

		if cfg.Telegram.RunMode == config.RunModeWebhook {
			return runWebhook(ctx, cfg, mgr)
		}
		return runLongpoll(ctx, cfg, mgr)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// runWebhook serves the HTTP dispatcher. The engine build is attempted
// eagerly but a failure is not fatal: the dispatcher retries it per update
// and answers 503 until it succeeds.
func runWebhook(ctx context.Context, cfg *config.Config, mgr *engine.Manager) error {
	if _, err := mgr.EnsureReady(ctx); err != nil {
		logger.L.Warn("initial engine build failed, will retry on first update",
			slog.String("event", "engine.warmup.fail"),
			slog.String("error", err.Error()),
		)
	}
	if err := telegram.RegisterWebhook(ctx, cfg.Telegram.Token, cfg.Webhook.URL); err != nil {
		logger.L.Warn("webhook registration failed",
			slog.String("event", "webhook.register.fail"),
			slog.String("error", err.Error()),
		)
	}
	return webhook.NewServer(cfg, mgr).Run(ctx)
}

// runLongpoll blocks on the telebot poller until the context is cancelled.
// Telegram refuses getUpdates while a webhook is registered, so any stale
// registration is cleared first.
func runLongpoll(ctx context.Context, cfg *config.Config, mgr *engine.Manager) error {
	eng, err := mgr.EnsureReady(ctx)
	if err != nil {
		return err
	}
	if err := telegram.DeleteWebhook(ctx, cfg.Telegram.Token, false); err != nil {
		logger.L.Warn("webhook cleanup failed",
			slog.String("event", "webhook.delete.fail"),
			slog.String("error", err.Error()),
		)
	}

	done := make(chan struct{})
	go func() {
		eng.Bot.Start()
		close(done)
	}()

	select {
	case <-ctx.Done():
		eng.Bot.Stop()
		<-done
		return nil
	case <-done:
		return nil
	}
}
