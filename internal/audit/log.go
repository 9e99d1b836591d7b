// Package audit provides the append-only operator audit trail.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/canarystack/canary-engine/internal/models"
)

// Log is an append-only store of LogEntry records. The underlying slice is
// insertion ordered; Entries returns a newest-first copy, matching how the
// trail is surfaced to operators. Safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	entries []models.LogEntry
	now     func() time.Time
}

// NewLog constructs an empty audit log.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// Record appends a new entry with a fresh id and the current timestamp, and
// returns the entry as stored.
func (l *Log) Record(event, details string, severity models.Severity) models.LogEntry {
	entry := models.LogEntry{
		ID:        uuid.NewString(),
		Timestamp: l.now().UTC(),
		Event:     event,
		Details:   details,
		Severity:  severity,
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	return entry
}

// Entries returns a snapshot of all entries, newest first.
func (l *Log) Entries() []models.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.LogEntry, len(l.entries))
	for i, entry := range l.entries {
		out[len(l.entries)-1-i] = entry
	}
	return out
}

// Len returns the number of recorded entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
