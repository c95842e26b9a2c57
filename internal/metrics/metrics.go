// Package metrics declares the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "booking_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_transitions_total",
		Help: "Committed booking status transitions by target status.",
	}, []string{"status"})

	TransitionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_transition_rejections_total",
		Help: "Rejected transition requests by reason.",
	}, []string{"reason"})

	Refunds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_refunds_total",
		Help: "Refund attempts by outcome.",
	}, []string{"outcome"})

	SideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_side_effect_failures_total",
		Help: "Failed best-effort side effects by step.",
	}, []string{"step"})

	OutboxDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_outbox_dispatched_total",
		Help: "Outbox events handed to the broker by result.",
	}, []string{"result"})

	OutboxRedrives = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_outbox_redrives_total",
		Help: "Outbox re-drive attempts by result.",
	}, []string{"result"})
)
