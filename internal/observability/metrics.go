package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderCallLatency records provider round-trip latency by call kind
	// (text, image, video) and outcome.
	ProviderCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "threads_provider_call_latency_seconds",
		Help:    "Generation provider call latency in seconds",
		Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"kind", "outcome"})

	// GenerationsTotal counts text generations by result.
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threads_generations_total",
		Help: "Total text generation requests by result",
	}, []string{"result"})

	// StaleGenerationsDropped counts in-flight responses discarded by the
	// sequence guard.
	StaleGenerationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threads_stale_generations_dropped_total",
		Help: "Total generation completions discarded as stale",
	})

	// ActiveVideoPolls is the gauge of video poll loops currently running.
	ActiveVideoPolls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "threads_active_video_polls",
		Help: "Number of video generation poll loops in flight",
	})

	// ActiveSessions tracks sessions held in the registry.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "threads_active_sessions",
		Help: "Number of live sessions in the registry",
	})
)

// ObserveProviderCall records one provider round trip.
func ObserveProviderCall(kind string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ProviderCallLatency.WithLabelValues(kind, outcome).Observe(time.Since(start).Seconds())
}
