package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	natsEventsReceivedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notification_dispatch",
			Name:      "nats_events_received_total",
			Help:      "Total notification events received from NATS.",
		},
		[]string{"subject"},
	)

	eventsProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notification_dispatch",
			Name:      "events_processed_total",
			Help:      "Total notification events processed.",
		},
		[]string{"result"}, // "dispatched", "messaging_disabled", "no_template", "rate_limited", "error"
	)

	channelAttemptsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notification_dispatch",
			Name:      "channel_attempts_total",
			Help:      "Per-channel dispatch outcomes.",
		},
		[]string{"channel", "outcome"},
	)

	dispatchDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "notification_dispatch",
			Name:      "event_dispatch_duration_seconds",
			Help:      "Duration of full event dispatch.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"event_id"},
	)

	providerRequestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "notification_dispatch",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of provider send calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider_name"},
	)
)
