// Package api exposes the release session to its UI collaborator over HTTP
// and a WebSocket event stream.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/canarystack/canary-engine/internal/config"
	"github.com/canarystack/canary-engine/internal/engine"
	"github.com/canarystack/canary-engine/internal/utils"
)

// Server wraps the HTTP server and its lifecycle helpers.
type Server struct {
	cfg        config.ServerConfig
	logger     *slog.Logger
	session    *engine.Session
	hub        *Hub
	latencies  *utils.LatencyTracker
	httpServer *http.Server
}

// NewServer constructs the HTTP API bound to the configured address.
func NewServer(cfg config.ServerConfig, logger *slog.Logger, session *engine.Session, hub *Hub) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		session:   session,
		hub:       hub,
		latencies: utils.NewLatencyTracker(1024),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/session", s.getSession)
		v1.GET("/session/metrics", s.getMetrics)
		v1.GET("/session/audit", s.getAudit)
		v1.GET("/session/messages", s.getMessages)
		v1.GET("/session/stream", s.streamEvents)

		v1.POST("/session/start", s.action("start", func(c *gin.Context) error {
			return s.session.StartGuidedRelease()
		}))
		v1.POST("/session/continue-to-setup", s.action("continue-to-setup", func(c *gin.Context) error {
			return s.session.ContinueToSetup()
		}))
		v1.POST("/session/start-canary", s.action("start-canary", s.startCanary))
		v1.POST("/session/rollback/request", s.action("rollback-request", func(c *gin.Context) error {
			return s.session.RequestRollback()
		}))
		v1.POST("/session/rollback/confirm", s.action("rollback-confirm", func(c *gin.Context) error {
			return s.session.ConfirmRollback()
		}))
		v1.POST("/session/rollback/cancel", s.action("rollback-cancel", func(c *gin.Context) error {
			return s.session.CancelRollback()
		}))
		v1.POST("/session/continue-rollout", s.action("continue-rollout", s.continueRollout))
		v1.POST("/session/replay", s.action("replay", func(c *gin.Context) error {
			return s.session.Replay()
		}))

		v1.GET("/settings", s.getSettings)
		v1.PUT("/settings", s.putSettings)
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start serves HTTP requests until Shutdown is invoked.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// LatencyP95 returns the current p95 action handling latency.
func (s *Server) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}
