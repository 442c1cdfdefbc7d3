// Package telegram is the transport glue between Telegram and the
// conversation engine: bot construction, command and callback routing,
// middleware, and the asynchronous outbound sender.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/loopline/trackbot/internal/config"
	"github.com/loopline/trackbot/internal/logger"
	"github.com/loopline/trackbot/internal/netutil"
)

// NewBot constructs the telebot instance. The constructor performs the
// Telegram identity handshake (getMe), so a bad token fails here and not on
// the first update. In webhook mode no poller is attached; updates arrive
// through Bot.ProcessUpdate from the HTTP dispatcher.
func NewBot(cfg *config.Config) (*tele.Bot, error) {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Client: netutil.BuildHTTPClient(),
		OnError: func(err error, c tele.Context) {
			ctx := context.Background()
			if c != nil {
				ctx = BuildContext(c)
			}
			logger.Error(ctx, "tg", "handler.fail", slog.String("error", redactToken(err)))
		},
	}
	if cfg.Telegram.RunMode == config.RunModeLongpoll {
		settings.Poller = BuildPoller(cfg.Telegram.LongPollTimeoutSeconds)
	}

	bot, err := tele.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	return bot, nil
}

// BuildPoller returns the long-poll poller with the configured timeout.
func BuildPoller(timeoutSeconds int) tele.Poller {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 10
	}
	return &tele.LongPoller{Timeout: time.Duration(timeoutSeconds) * time.Second}
}

// RegisterWebhook points Telegram at the public webhook URL. The dispatcher
// runs its own HTTP server, so registration happens through the raw API
// rather than a telebot webhook poller.
func RegisterWebhook(ctx context.Context, token, publicURL string) error {
	return webhookCall(ctx, token, "setWebhook", url.Values{"url": {publicURL}})
}

// DeleteWebhook clears the webhook registration before long polling starts;
// Telegram refuses getUpdates while a webhook is set.
func DeleteWebhook(ctx context.Context, token string, dropPending bool) error {
	vals := url.Values{"drop_pending_updates": {"false"}}
	if dropPending {
		vals.Set("drop_pending_updates", "true")
	}
	return webhookCall(ctx, token, "deleteWebhook", vals)
}

func webhookCall(ctx context.Context, token, method string, vals url.Values) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("telegram: empty token")
	}
	callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/%s", token, method)
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, strings.NewReader(vals.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := netutil.BuildHTTPClient().Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: %s status: %s", method, resp.Status)
	}
	return nil
}
