// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "o11ykit"

// Outcome label values for LoadTestRequests
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	// HttpRequestsTotal counts served HTTP requests by route, method and status code.
	HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "The total number of served HTTP requests",
	}, []string{"path", "method", "status"})

	// HttpRequestDuration observes the latency of served HTTP requests by route.
	HttpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"path"})

	// LoadTestRequests counts requests issued by the load generator.
	LoadTestRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "loadtest",
		Name:      "requests_total",
		Help:      "Requests issued by the load generator by outcome",
	}, []string{"outcome"})

	// LoadTestCurrentRPS is the most recent windowed request rate.
	LoadTestCurrentRPS = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "loadtest",
		Name:      "current_rps",
		Help:      "Most recent windowed request rate of the load generator",
	})

	// LoadTestActive is 1 while a load test run is active.
	LoadTestActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "loadtest",
		Name:      "active",
		Help:      "Whether a load test run is active",
	})

	// LoadTestSubscribers is the number of connected stats subscribers.
	LoadTestSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "loadtest",
		Name:      "subscribers",
		Help:      "Number of connected stats stream subscribers",
	})

	// LoadTestBroadcastFailures counts pushes that failed and pruned a subscriber.
	LoadTestBroadcastFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "loadtest",
		Name:      "broadcast_failures_total",
		Help:      "Stats pushes that failed and removed the subscriber",
	})

	// ItemsListDelayed counts list calls that were artificially slowed down.
	ItemsListDelayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "items",
		Name:      "list_delayed_total",
		Help:      "Item list calls that received the artificial delay",
	})
)
