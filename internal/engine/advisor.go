package engine

import (
	"fmt"
	"time"

	"github.com/canarystack/canary-engine/internal/models"
)

const (
	// defaultConfidence is the advisor's initial rollback confidence,
	// reset at the start of every anomaly episode.
	defaultConfidence = 83

	riskHigh = "high"
)

// Advisory is one scheduled message of the anomaly advisory sequence.
type Advisory struct {
	Offset   time.Duration
	Text     string
	Kind     models.MessageKind
	Metadata map[string]string
}

// Advisor scripts the three-step advisory sequence emitted after an anomaly
// is confirmed: summary alert, quantified delta, then an actionable
// recommendation carrying explicit confidence and risk.
type Advisor struct {
	offsets [3]time.Duration
}

// NewAdvisor constructs an advisor with the supplied message offsets.
func NewAdvisor(alert, detail, recommend time.Duration) *Advisor {
	return &Advisor{offsets: [3]time.Duration{alert, detail, recommend}}
}

// Sequence builds the advisory messages for the triggering sample. Ordering
// and content dependency are fixed; offsets come from configuration.
func (a *Advisor) Sequence(sample models.MetricSample) []Advisory {
	latencyDelta := percentDelta(sample.LatencyMs, baselineLatencyMs)
	errorFactor := ratio(sample.ErrorRate, baselineErrorRate)
	driftDelta := percentDelta(sample.DriftUserRegion, baselineDriftRegion)

	return []Advisory{
		{
			Offset: a.offsets[0],
			Text:   fmt.Sprintf("Anomaly detected on canary traffic for %s. Investigating metric deviations now.", models.CandidateModel.Version),
			Kind:   models.MessageAlert,
		},
		{
			Offset: a.offsets[1],
			Text: fmt.Sprintf(
				"Latency is up %.0f%% (%.0fms vs %.0fms baseline), error rate is %.1fx baseline (%.2f%%), and user-region drift is up %.0f%%.",
				latencyDelta, sample.LatencyMs, baselineLatencyMs, errorFactor, sample.ErrorRate*100, driftDelta,
			),
			Kind: models.MessageNormal,
		},
		{
			Offset: a.offsets[2],
			Text: fmt.Sprintf(
				"Recommendation: roll back to %s. Confidence %d%%, risk of continuing: %s.",
				models.BaselineModel.Version, defaultConfidence, riskHigh,
			),
			Kind: models.MessageRecommendation,
			Metadata: map[string]string{
				"confidence": fmt.Sprintf("%d", defaultConfidence),
				"risk":       riskHigh,
			},
		},
	}
}

// TimeoutText is the advisory framing once the decision window has elapsed
// without a rollback/continue decision.
func (a *Advisor) TimeoutText() string {
	return fmt.Sprintf("Timeout: action required. The decision window has elapsed; roll back to %s or continue the rollout.", models.BaselineModel.Version)
}

func percentDelta(value, baseline float64) float64 {
	if baseline == 0 {
		return 0
	}
	return (value - baseline) / baseline * 100
}

func ratio(value, baseline float64) float64 {
	if baseline == 0 {
		return 0
	}
	return value / baseline
}
