package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/canarystack/canary-engine/internal/engine"
	"github.com/canarystack/canary-engine/internal/models"
)

type startCanaryRequest struct {
	CanaryPercent      int `json:"canaryPercent"`
	RolloutDurationMin int `json:"rolloutDurationMin"`
}

type continueRolloutRequest struct {
	Confidence int `json:"confidence"`
}

type settingsRequest struct {
	NetworkEnabled       *bool `json:"networkEnabled,omitempty"`
	DefaultCanaryPercent *int  `json:"defaultCanaryPercent,omitempty"`
}

type sessionResponse struct {
	Phase            models.Phase           `json:"phase"`
	ShadowComplete   bool                   `json:"shadowComplete"`
	Config           models.SessionConfig   `json:"config"`
	Confidence       int                    `json:"confidence"`
	DecisionTimedOut bool                   `json:"decisionTimedOut"`
	BaselineModel    models.ModelDescriptor `json:"baselineModel"`
	CandidateModel   models.ModelDescriptor `json:"candidateModel"`
}

// action wraps a session trigger with error mapping and latency tracking.
func (s *Server) action(name string, fn func(c *gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		err := fn(c)
		s.latencies.Observe(time.Since(start))
		if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
			s.logger.Info("action latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
		}

		if err != nil {
			s.renderError(c, name, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"phase": s.session.Phase(),
		})
	}
}

func (s *Server) renderError(c *gin.Context, name string, err error) {
	var invalidTransition *engine.InvalidTransitionError
	var invalidConfig *engine.InvalidConfigurationError
	var timerConflict *engine.TimerConflictError

	switch {
	case errors.As(err, &invalidTransition):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "invalid_transition",
			"phase":   invalidTransition.Phase,
			"trigger": invalidTransition.Trigger,
			"message": err.Error(),
		})
	case errors.As(err, &invalidConfig):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_configuration",
			"field":   invalidConfig.Field,
			"message": err.Error(),
		})
	case errors.As(err, &timerConflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "timer_conflict",
			"message": err.Error(),
		})
	default:
		s.logger.Error("action failed", slog.String("action", name), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "action failed"})
	}
}

func (s *Server) startCanary(c *gin.Context) error {
	var req startCanaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return &engine.InvalidConfigurationError{Field: "body", Reason: err.Error()}
	}
	return s.session.StartCanary(req.CanaryPercent, req.RolloutDurationMin)
}

func (s *Server) continueRollout(c *gin.Context) error {
	var req continueRolloutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return &engine.InvalidConfigurationError{Field: "body", Reason: err.Error()}
	}
	return s.session.ContinueRollout(req.Confidence)
}

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, sessionResponse{
		Phase:            s.session.Phase(),
		ShadowComplete:   s.session.ShadowComplete(),
		Config:           s.session.Config(),
		Confidence:       s.session.Confidence(),
		DecisionTimedOut: s.session.DecisionTimedOut(),
		BaselineModel:    models.BaselineModel,
		CandidateModel:   models.CandidateModel,
	})
}

func (s *Server) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"samples": s.session.MetricHistory()})
}

func (s *Server) getAudit(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entries": s.session.AuditLog().Entries()})
}

func (s *Server) getMessages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": s.session.Messages()})
}

func (s *Server) getSettings(c *gin.Context) {
	cfg := s.session.Config()
	c.JSON(http.StatusOK, gin.H{
		"networkEnabled":       cfg.NetworkEnabled,
		"defaultCanaryPercent": cfg.DefaultCanaryPercent,
	})
}

func (s *Server) putSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_configuration", "message": err.Error()})
		return
	}

	if req.NetworkEnabled != nil {
		if err := s.session.SetNetworkEnabled(*req.NetworkEnabled); err != nil {
			s.renderError(c, "set-network-enabled", err)
			return
		}
	}
	if req.DefaultCanaryPercent != nil {
		if err := s.session.SetDefaultCanaryPercent(*req.DefaultCanaryPercent); err != nil {
			s.renderError(c, "set-default-canary-percent", err)
			return
		}
	}

	s.getSettings(c)
}
