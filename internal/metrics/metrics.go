package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopdesk_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopdesk_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Real-time metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shopdesk_ws_connections_active",
			Help: "Live WebSocket connections",
		},
	)

	EventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopdesk_events_delivered_total",
			Help: "Events queued to live connections",
		},
		[]string{"event"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopdesk_events_dropped_total",
			Help: "Events dropped because a connection queue was full",
		},
		[]string{"event"},
	)

	// Business metrics
	MessagesSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopdesk_messages_submitted_total",
			Help: "Chat messages persisted",
		},
		[]string{"source"}, // "rest" or "live"
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopdesk_notifications_created_total",
			Help: "Notifications persisted",
		},
		[]string{"scope"}, // "all" or "user"
	)

	CartUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shopdesk_cart_updates_total",
			Help: "Cart upserts",
		},
	)

	CascadeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopdesk_cascade_step_failures_total",
			Help: "User deletion steps that failed",
		},
		[]string{"step"},
	)
)
