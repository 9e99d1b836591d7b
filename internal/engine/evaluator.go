package engine

import "github.com/canarystack/canary-engine/internal/models"

// AnomalyEvaluator decides whether a live tick confirms an anomaly against
// the fixed threshold. Edge-triggered: it fires at most once per monitoring
// session and never re-fires on ticks past the threshold.
type AnomalyEvaluator struct {
	fired bool
}

// NewAnomalyEvaluator constructs an evaluator for a fresh session.
func NewAnomalyEvaluator() *AnomalyEvaluator {
	return &AnomalyEvaluator{}
}

// Reset re-arms the evaluator when monitoring (re)starts.
func (e *AnomalyEvaluator) Reset() {
	e.fired = false
}

// Confirm reports whether this tick confirms an anomaly. Only meaningful
// while the session is in the monitoring phase.
func (e *AnomalyEvaluator) Confirm(phase models.Phase, tick int) bool {
	if e.fired || phase != models.PhaseMonitoring {
		return false
	}
	if tick != anomalyThresholdTick {
		return false
	}
	e.fired = true
	return true
}
