package engine

// EventType enumerates the engine's outbound event stream categories.
type EventType string

const (
	EventPhaseChanged EventType = "phase_changed"
	EventMetricSample EventType = "metric_sample"
	EventAgentMessage EventType = "agent_message"
	EventAuditEntry   EventType = "audit_entry"
)

// Event is a single push notification for the UI collaborator.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// PhasePayload accompanies phase_changed events.
type PhasePayload struct {
	Phase          string `json:"phase"`
	Trigger        string `json:"trigger"`
	ShadowComplete bool   `json:"shadowComplete"`
}
