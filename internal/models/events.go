package models

import "time"

// Sender identifies who produced an agent message.
type Sender string

const (
	SenderAgent  Sender = "agent"
	SenderSystem Sender = "system"
	SenderUser   Sender = "user"
)

// MessageKind categorises agent messages for presentation.
type MessageKind string

const (
	MessageNormal         MessageKind = "normal"
	MessageAlert          MessageKind = "alert"
	MessageRecommendation MessageKind = "recommendation"
	MessageSuccess        MessageKind = "success"
)

// AgentMessage is one entry in the advisory conversation. Append-only;
// ordering is creation order.
type AgentMessage struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	CreatedAt time.Time         `json:"createdAt"`
	Sender    Sender            `json:"sender"`
	Kind      MessageKind       `json:"kind"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Severity captures audit log entry impact levels.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
)

// LogEntry is one operator-visible audit record. The store is insertion
// ordered; reads surface entries newest first.
type LogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	Details   string    `json:"details"`
	Severity  Severity  `json:"severity"`
}
