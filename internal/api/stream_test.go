package api

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/canarystack/canary-engine/internal/engine"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub(nil)

	first := hub.subscribe()
	second := hub.subscribe()

	hub.Publish(engine.Event{Type: engine.EventPhaseChanged})

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)

	hub.unsubscribe(first)
	hub.Publish(engine.Event{Type: engine.EventAuditEntry})
	assert.Len(t, second, 2)
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub(nil)
	ch := hub.subscribe()

	// Fill the buffer past capacity; the subscriber must be dropped, not
	// block the publisher.
	for i := 0; i < cap(ch)+1; i++ {
		hub.Publish(engine.Event{Type: engine.EventMetricSample})
	}

	hub.mu.Lock()
	remaining := len(hub.subscribers)
	hub.mu.Unlock()
	assert.Zero(t, remaining)
}

func TestUnsubscribeTwiceIsSafe(t *testing.T) {
	hub := NewHub(nil)
	ch := hub.subscribe()
	hub.unsubscribe(ch)
	hub.unsubscribe(ch)
}
