package webhook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	webhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trackbot",
		Subsystem: "webhook",
		Name:      "requests_total",
		Help:      "Webhook requests by outcome.",
	}, []string{"outcome"})

	webhookDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trackbot",
		Subsystem: "webhook",
		Name:      "request_seconds",
		Help:      "Webhook update processing time.",
		Buckets:   prometheus.DefBuckets,
	})

	initFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trackbot",
		Subsystem: "webhook",
		Name:      "init_failures_total",
		Help:      "Engine initialization failures observed by the dispatcher.",
	})
)
