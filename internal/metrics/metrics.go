package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Notification Metrics
var (
	// NotificationsTotal tracks delivered and failed announcements by
	// content kind (video/stream) and status
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total announcement deliveries by content kind and status",
		},
		[]string{"kind", "status"},
	)
)

// Poll Sweep Metrics
var (
	// SweepDuration tracks full-sweep latency per content kind
	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sweep_duration_seconds",
			Help:    "Poll sweep duration in seconds by content kind",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)

	// SweepErrors tracks per-subscription upstream failures inside sweeps
	SweepErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_errors_total",
			Help: "Per-subscription upstream errors during sweeps by content kind",
		},
		[]string{"kind"},
	)
)

// Push Ingestion Metrics
var (
	// WebhookPayloadsTotal tracks received feed deliveries by outcome
	// (processed/malformed/ignored)
	WebhookPayloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_payloads_total",
			Help: "Push feed deliveries by outcome",
		},
		[]string{"outcome"},
	)

	// LeaseRenewalsTotal tracks hub lease renewals by status
	LeaseRenewalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lease_renewals_total",
			Help: "Hub subscription lease renewals by status",
		},
		[]string{"status"},
	)
)

// Token Metrics
var (
	// TokenExchangesTotal tracks OAuth exchanges by flow and status
	TokenExchangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_exchanges_total",
			Help: "OAuth token exchanges by flow and status",
		},
		[]string{"flow", "status"},
	)
)
