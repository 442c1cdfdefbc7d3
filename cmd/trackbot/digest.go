package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	tele "gopkg.in/telebot.v4"

	"github.com/loopline/trackbot/internal/airtable"
	"github.com/loopline/trackbot/internal/logger"
	"github.com/loopline/trackbot/internal/telegram"
	"github.com/loopline/trackbot/internal/tracker"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Send the weekly project digest and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Digest.ChatID == 0 {
			return fmt.Errorf("digest: digest.chat_id is not configured")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		svc := tracker.NewService(airtable.New(cfg.Airtable))
		text, err := svc.BuildDigest(ctx, cfg.Digest.Days)
		if err != nil {
			return err
		}

		bot, err := telegram.NewBot(cfg)
		if err != nil {
			return err
		}

		opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown}
		if cfg.Digest.TopicID != 0 {
			opts.ThreadID = cfg.Digest.TopicID
		}
		if _, err := bot.Send(&tele.Chat{ID: cfg.Digest.ChatID}, text, opts); err != nil {
			return fmt.Errorf("digest: send: %w", err)
		}

		logger.DIGEST.Info("digest sent",
			slog.String("event", "digest.sent"),
			slog.Int64("chat_id", cfg.Digest.ChatID),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(digestCmd)
}
