package telegram

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/loopline/trackbot/internal/logger"
)

// AttachRoutes binds the registry to the bot: one handler per command, a
// single callback demultiplexer, and the text fallback that feeds active
// conversations.
func AttachRoutes(bot *tele.Bot, reg *Registry) {
	for name, cmd := range reg.Commands() {
		bot.Handle(name, cmd.Handler)
	}

	bot.Handle(tele.OnCallback, func(c tele.Context) error {
		key, payload := parseCallback(c.Callback())
		handler, ok := reg.Callback(key)
		if !ok {
			logger.TG.Warn("unknown callback",
				slog.String("event", "callback.unknown"),
				slog.String("key", logger.SanitizeLimit(key, 128)),
			)
			return reg.CallbackNotFound()(c)
		}
		c.Set(payloadKey, payload)
		return handler(c)
	})

	if fallback := reg.TextFallback(); fallback != nil {
		bot.Handle(tele.OnText, fallback)
	}
}
