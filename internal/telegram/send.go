package telegram

import (
	"errors"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/loopline/trackbot/internal/logger"
)

// sendAsync hands the send closure to the dispatcher, falling back to a
// synchronous send when the queue is saturated or already closed. With no
// dispatcher wired (tests, digest one-shots) it sends inline.
func sendAsync(d *Dispatcher, c tele.Context, action string, run func() error) error {
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	if err := d.Enqueue(ctx, action, run); err != nil {
		if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(d *Dispatcher, c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	return sendAsync(d, c, "send.text", func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}

// SendMD sends a message with Markdown parse mode and optional reply markup.
func SendMD(d *Dispatcher, c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	return SendText(d, c, text, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: rm})
}
