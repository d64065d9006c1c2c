// Package metrics holds the Prometheus instruments for the fact-checking
// pipeline. All instruments register on the default registry and are safe
// for concurrent use.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "veritas"

var (
	// MessagesRouted counts broker dispatches.
	// Labels: receiver, outcome (delivered, no_subscriber, closed)
	MessagesRouted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "broker",
		Name:      "messages_total",
		Help:      "Messages sent through the broker by receiver and outcome.",
	}, []string{"receiver", "outcome"})

	// StanceResults counts evidence agent results.
	// Labels: stance, outcome (ok, empty, search_error, timeout)
	StanceResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "agent",
		Name:      "stance_results_total",
		Help:      "Stance results emitted by evidence agents.",
	}, []string{"stance", "outcome"})

	// Verdicts counts verdicts emitted by the judge.
	// Labels: recommendation
	Verdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "judge",
		Name:      "verdicts_total",
		Help:      "Verdicts emitted by the judge by recommendation.",
	}, []string{"recommendation"})

	// ClassifierOutcomes counts classifier calls.
	// Labels: outcome (ok, llm_error, malformed, empty)
	ClassifierOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "classifier",
		Name:      "classifications_total",
		Help:      "Factuality classifications by outcome.",
	}, []string{"outcome"})

	// CheckDuration measures a full claim check.
	// Labels: status (success, error)
	CheckDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "check_duration_seconds",
		Help:      "Time from claim injection to verdict.",
		Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
	}, []string{"status"})

	// ActiveSessions is the number of sessions with a live broker.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "active_sessions",
		Help:      "Fact-check sessions currently in flight.",
	})
)
