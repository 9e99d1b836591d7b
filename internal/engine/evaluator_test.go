package engine

import (
	"testing"

	"github.com/canarystack/canary-engine/internal/models"
)

func TestEvaluatorEdgeTriggered(t *testing.T) {
	evaluator := NewAnomalyEvaluator()

	for tick := 0; tick < anomalyThresholdTick; tick++ {
		if evaluator.Confirm(models.PhaseMonitoring, tick) {
			t.Fatalf("fired before threshold at tick %d", tick)
		}
	}
	if !evaluator.Confirm(models.PhaseMonitoring, anomalyThresholdTick) {
		t.Fatalf("did not fire at threshold tick")
	}
	for tick := anomalyThresholdTick; tick < anomalyThresholdTick+5; tick++ {
		if evaluator.Confirm(models.PhaseMonitoring, tick) {
			t.Fatalf("re-fired at tick %d", tick)
		}
	}
}

func TestEvaluatorIgnoresOtherPhases(t *testing.T) {
	evaluator := NewAnomalyEvaluator()
	if evaluator.Confirm(models.PhaseAnomalyDetected, anomalyThresholdTick) {
		t.Fatalf("fired outside monitoring phase")
	}
	if evaluator.Confirm(models.PhaseIdle, anomalyThresholdTick) {
		t.Fatalf("fired while idle")
	}
}

func TestEvaluatorResetRearms(t *testing.T) {
	evaluator := NewAnomalyEvaluator()
	if !evaluator.Confirm(models.PhaseMonitoring, anomalyThresholdTick) {
		t.Fatalf("did not fire at threshold tick")
	}
	evaluator.Reset()
	if !evaluator.Confirm(models.PhaseMonitoring, anomalyThresholdTick) {
		t.Fatalf("did not fire after reset")
	}
}
