package models

// Phase enumerates the release workflow states. Exactly one phase is active
// per session; the phase machine in internal/engine is its sole mutator.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseShadowTest      Phase = "shadow_test"
	PhaseCanarySetup     Phase = "canary_setup"
	PhaseMonitoring      Phase = "monitoring"
	PhaseAnomalyDetected Phase = "anomaly_detected"
	PhaseRollbackConfirm Phase = "rollback_confirm"
	PhaseRolledBack      Phase = "rolled_back"
)

// Trigger names an action applied to the phase machine. Triggers originate
// from operators (API), internal timers, or the anomaly evaluator.
type Trigger string

const (
	TriggerStartGuidedRelease Trigger = "start-guided-release"
	TriggerShadowTestComplete Trigger = "shadow-test-complete"
	TriggerContinueToSetup    Trigger = "continue-to-setup"
	TriggerStartCanary        Trigger = "start-canary"
	TriggerAnomalyConfirmed   Trigger = "anomaly-confirmed"
	TriggerRollbackRequested  Trigger = "rollback-requested"
	TriggerRollbackConfirmed  Trigger = "rollback-confirmed"
	TriggerRollbackCancelled  Trigger = "rollback-cancelled"
	TriggerContinueRollout    Trigger = "continue-rollout"
	TriggerReplay             Trigger = "replay"
)

// ModelDescriptor describes a model version under evaluation. Immutable.
type ModelDescriptor struct {
	Version   string  `json:"version"`
	Accuracy  float64 `json:"accuracy"`
	Recall    float64 `json:"recall"`
	LatencyMs float64 `json:"latencyMs"`
	Fairness  float64 `json:"fairness"`
}

// BaselineModel is the model currently serving production traffic.
var BaselineModel = ModelDescriptor{
	Version:   "v2.4.1",
	Accuracy:  0.947,
	Recall:    0.921,
	LatencyMs: 118,
	Fairness:  0.96,
}

// CandidateModel is the model under canary evaluation.
var CandidateModel = ModelDescriptor{
	Version:   "v2.5.0",
	Accuracy:  0.963,
	Recall:    0.945,
	LatencyMs: 124,
	Fairness:  0.95,
}

// SessionConfig holds the per-session rollout parameters plus the two durable
// operator settings. CanaryPercent is only mutable while the phase permits it;
// NetworkEnabled and DefaultCanaryPercent may change at any time and persist
// across sessions.
type SessionConfig struct {
	CanaryPercent        int  `json:"canaryPercent"`
	RolloutDurationMin   int  `json:"rolloutDurationMin"`
	NetworkEnabled       bool `json:"networkEnabled"`
	DefaultCanaryPercent int  `json:"defaultCanaryPercent"`
}
