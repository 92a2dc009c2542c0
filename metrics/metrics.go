package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "The total number of bookings created",
	})

	WebhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhooks_received_total",
		Help: "The total number of payment webhooks received, by outcome",
	}, []string{"result"})

	PaymentsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_applied_total",
		Help: "The total number of payments applied to bookings",
	}, []string{"source"})

	Reminders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reminders_total",
		Help: "The total number of reminder attempts, by status",
	}, []string{"status"})

	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messages_sent_total",
		Help: "The total number of outbound messages",
	}, []string{"channel", "result"})

	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Latency of calls to external providers",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "operation"})
)
