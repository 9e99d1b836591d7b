package engine

import (
	"fmt"

	"github.com/canarystack/canary-engine/internal/models"
)

// InvalidTransitionError reports an action that the current phase does not
// permit. The phase is left unchanged when this is returned.
type InvalidTransitionError struct {
	Phase   models.Phase
	Trigger models.Trigger
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: trigger %q not permitted in phase %q", e.Trigger, e.Phase)
}

// InvalidConfigurationError reports a rejected rollout or settings parameter.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// TimerConflictError reports an attempt to open a new anomaly episode while
// one is still unresolved. The transition table makes this unreachable; the
// guard exists so a scheduling bug surfaces as an error instead of a second
// set of timers.
type TimerConflictError struct {
	Reason string
}

func (e *TimerConflictError) Error() string {
	return fmt.Sprintf("timer conflict: %s", e.Reason)
}

func invalidTransition(phase models.Phase, trigger models.Trigger) error {
	return &InvalidTransitionError{Phase: phase, Trigger: trigger}
}
