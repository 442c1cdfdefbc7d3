package telegram

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	updatesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trackbot",
		Subsystem: "telegram",
		Name:      "updates_total",
		Help:      "Processed Telegram updates by kind.",
	}, []string{"kind"})

	outboundSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trackbot",
		Subsystem: "telegram",
		Name:      "sends_total",
		Help:      "Outbound Telegram API calls by action and outcome.",
	}, []string{"action", "outcome"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trackbot",
		Subsystem: "telegram",
		Name:      "rate_limited_total",
		Help:      "Updates dropped by the per-user rate limit.",
	})
)
