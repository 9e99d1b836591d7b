package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/canarystack/canary-engine/internal/engine"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Hub fans engine events out to connected WebSocket clients. Publishing never
// blocks the engine: a slow client's buffer overflowing drops that client.
type Hub struct {
	mu          sync.Mutex
	logger      *slog.Logger
	subscribers map[chan engine.Event]struct{}
}

// NewHub constructs an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:      logger,
		subscribers: make(map[chan engine.Event]struct{}),
	}
}

// Publish delivers an event to all subscribers without blocking.
func (h *Hub) Publish(event engine.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			h.logger.Warn("dropping slow event subscriber")
			delete(h.subscribers, ch)
			close(ch)
		}
	}
}

func (h *Hub) subscribe() chan engine.Event {
	ch := make(chan engine.Event, 64)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan engine.Event) {
	h.mu.Lock()
	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// streamEvents upgrades the connection and pushes engine events as JSON until
// the client disconnects.
func (s *Server) streamEvents(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer ws.Close()

	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)

	// Reader goroutine exists only to observe the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := ws.WriteJSON(event); err != nil {
				s.logger.Info("websocket client disconnected", slog.Any("error", err))
				return
			}
		case <-done:
			return
		}
	}
}
