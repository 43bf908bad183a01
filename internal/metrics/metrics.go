package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airfare_tool_calls_total",
			Help: "Total number of tool invocations by outcome",
		},
		[]string{"tool", "outcome"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airfare_upstream_requests_total",
			Help: "Total number of fare source requests by outcome",
		},
		[]string{"outcome"},
	)

	UpstreamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "airfare_upstream_request_duration_seconds",
			Help:    "Duration of fare source requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
