// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "childbook"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 30, 120, 600},
		},
		[]string{"method", "route"},
	)

	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Calls to the image generation provider by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	PollAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "poll_attempts_total",
			Help:      "Generation status checks by observed status",
		},
		[]string{"status"},
	)

	StoryGenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "story",
			Name:      "generation_total",
			Help:      "Story documents by story key and result",
		},
		[]string{"story", "status"},
	)

	StoryGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "story",
			Name:      "generation_duration_seconds",
			Help:      "Wall time of one story generation run",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200, 1800},
		},
		[]string{"story"},
	)
)

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveProviderCall records one provider request outcome.
func ObserveProviderCall(endpoint, outcome string) {
	ProviderCallsTotal.WithLabelValues(endpoint, outcome).Inc()
}

// ObservePoll records one status check.
func ObservePoll(status string) {
	PollAttemptsTotal.WithLabelValues(status).Inc()
}

// ObserveStory records the end of a story run.
func ObserveStory(story string, err error, elapsed time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	StoryGenerationTotal.WithLabelValues(story, status).Inc()
	StoryGenerationDuration.WithLabelValues(story).Observe(elapsed.Seconds())
}
