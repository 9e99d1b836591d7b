package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DecisionRollback labels anomaly episodes resolved by rollback.
	DecisionRollback = "rollback"
	// DecisionContinue labels anomaly episodes resolved by continuing the rollout.
	DecisionContinue = "continue"
)

var (
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "canary_engine",
			Name:      "phase_transitions_total",
			Help:      "Total number of applied phase transitions, partitioned by origin phase and trigger.",
		},
		[]string{"from", "trigger"},
	)

	invalidTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "canary_engine",
			Name:      "invalid_transitions_total",
			Help:      "Total number of rejected triggers, partitioned by phase and trigger.",
		},
		[]string{"phase", "trigger"},
	)

	samplesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "canary_engine",
			Name:      "metric_samples_total",
			Help:      "Total number of live canary metric samples produced.",
		},
	)

	anomaliesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "canary_engine",
			Name:      "anomalies_total",
			Help:      "Total number of confirmed anomaly episodes.",
		},
	)

	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "canary_engine",
			Name:      "decisions_total",
			Help:      "Total number of resolved anomaly decisions, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	decisionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "canary_engine",
			Name:      "decision_seconds",
			Help:      "Time from anomaly confirmation to operator decision, in seconds.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
	)
)

// Register attaches canary-engine collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		transitionsTotal,
		invalidTransitionsTotal,
		samplesTotal,
		anomaliesTotal,
		decisionsTotal,
		decisionSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveTransition records an applied phase transition.
func ObserveTransition(from, trigger string) {
	transitionsTotal.WithLabelValues(from, trigger).Inc()
}

// ObserveInvalidTransition records a rejected trigger.
func ObserveInvalidTransition(phase, trigger string) {
	invalidTransitionsTotal.WithLabelValues(phase, trigger).Inc()
}

// ObserveSample records one produced metric sample.
func ObserveSample() {
	samplesTotal.Inc()
}

// ObserveAnomaly records a confirmed anomaly episode.
func ObserveAnomaly() {
	anomaliesTotal.Inc()
}

// ObserveDecision records a resolved anomaly decision and its latency.
func ObserveDecision(outcome string, elapsed time.Duration) {
	if outcome != DecisionRollback {
		outcome = DecisionContinue
	}
	decisionsTotal.WithLabelValues(outcome).Inc()
	if elapsed < 0 {
		elapsed = 0
	}
	decisionSeconds.Observe(elapsed.Seconds())
}
