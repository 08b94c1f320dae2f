package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazaar_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bazaar_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Messaging metrics
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bazaar_messages_sent_total",
			Help: "Total chat messages appended",
		},
	)

	DialogsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bazaar_dialogs_created_total",
			Help: "Total dialogs created on first contact",
		},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazaar_notifications_created_total",
			Help: "Total notifications written",
		},
		[]string{"type"},
	)

	BroadcastRecipients = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bazaar_broadcast_recipients_total",
			Help: "Total notifications written by announcement broadcasts",
		},
	)

	// Moderation metrics
	ModerationActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazaar_moderation_actions_total",
			Help: "Total admin actions applied",
		},
		[]string{"target", "action"}, // target is "user" or "listing"
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazaar_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
