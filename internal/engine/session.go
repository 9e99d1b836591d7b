// Package engine implements the canary release orchestration core: the phase
// state machine, the synthetic metric sampler, anomaly evaluation, and the
// advisory sequence around the human confirmation gate.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/canarystack/canary-engine/internal/audit"
	"github.com/canarystack/canary-engine/internal/metrics"
	"github.com/canarystack/canary-engine/internal/models"
)

// SettingsStore provides the two durable operator settings. Implementations
// must persist changes across sessions.
type SettingsStore interface {
	NetworkEnabled() bool
	SetNetworkEnabled(enabled bool) error
	DefaultCanaryPercent() int
	SetDefaultCanaryPercent(percent int) error
}

// Timings groups every scripted delay the session schedules. Tests compress
// these without touching the state machine.
type Timings struct {
	TickInterval            time.Duration
	ShadowTestDuration      time.Duration
	DecisionTimeout         time.Duration
	AdvisoryAlertOffset     time.Duration
	AdvisoryDetailOffset    time.Duration
	AdvisoryRecommendOffset time.Duration
}

// DefaultTimings returns the production delays.
func DefaultTimings() Timings {
	return Timings{
		TickInterval:            time.Second,
		ShadowTestDuration:      4 * time.Second,
		DecisionTimeout:         60 * time.Second,
		AdvisoryAlertOffset:     500 * time.Millisecond,
		AdvisoryDetailOffset:    1500 * time.Millisecond,
		AdvisoryRecommendOffset: 3 * time.Second,
	}
}

// episode tracks one anomaly's pending decision window: the advisory message
// timers plus the decision timeout. Cancelled atomically on resolution.
type episode struct {
	startedAt time.Time
	cancels   []CancelFunc
	timedOut  bool
}

func (ep *episode) cancelTimers() {
	for _, cancel := range ep.cancels {
		cancel()
	}
	ep.cancels = nil
}

// Session owns all release state for one canary workflow: phase, metric
// history, agent messages, and the audit trail. Every mutation goes through
// a trigger method under one mutex; timer callbacks re-enter the same way.
type Session struct {
	mu sync.Mutex

	logger    *slog.Logger
	sched     Scheduler
	sampler   *MetricSampler
	evaluator *AnomalyEvaluator
	advisor   *Advisor
	auditLog  *audit.Log
	settings  SettingsStore
	timings   Timings
	now       func() time.Time
	publish   func(Event)

	phase          models.Phase
	shadowComplete bool
	shadowCancel   CancelFunc

	canaryPercent      int
	rolloutDurationMin int

	history    []models.MetricSample
	tick       int
	tickCancel CancelFunc

	confidence int
	episode    *episode

	messages []models.AgentMessage
}

// NewSession constructs an idle release session. Nil collaborators fall back
// to production defaults.
func NewSession(logger *slog.Logger, sched Scheduler, sampler *MetricSampler, auditLog *audit.Log, settings SettingsStore, timings Timings) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if sched == nil {
		sched = NewScheduler()
	}
	if sampler == nil {
		sampler = NewMetricSampler(0)
	}
	if auditLog == nil {
		auditLog = audit.NewLog()
	}
	if settings == nil {
		settings = newMemorySettings()
	}
	if timings.TickInterval <= 0 {
		timings = DefaultTimings()
	}

	return &Session{
		logger:    logger,
		sched:     sched,
		sampler:   sampler,
		evaluator: NewAnomalyEvaluator(),
		advisor:   NewAdvisor(timings.AdvisoryAlertOffset, timings.AdvisoryDetailOffset, timings.AdvisoryRecommendOffset),
		auditLog:  auditLog,
		settings:  settings,
		timings:   timings,
		now:       time.Now,
		phase:     models.PhaseIdle,
	}
}

// SetPublisher installs the outbound event sink. Must be called before the
// session starts producing events.
func (s *Session) SetPublisher(publish func(Event)) {
	s.mu.Lock()
	s.publish = publish
	s.mu.Unlock()
}

// StartGuidedRelease moves an idle session into the shadow test.
func (s *Session) StartGuidedRelease() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseIdle {
		return s.reject(models.TriggerStartGuidedRelease)
	}

	s.transition(models.PhaseShadowTest, models.TriggerStartGuidedRelease)
	s.record("Shadow Test Initiated", fmt.Sprintf("candidate %s vs baseline %s", models.CandidateModel.Version, models.BaselineModel.Version), models.SeverityInfo)
	s.say(models.SenderAgent, models.MessageNormal,
		fmt.Sprintf("Starting a guided release of %s. Running a shadow test against baseline %s first; no live traffic is affected.",
			models.CandidateModel.Version, models.BaselineModel.Version), nil)

	s.shadowCancel = s.sched.AfterFunc(s.timings.ShadowTestDuration, s.onShadowTestComplete)
	return nil
}

// onShadowTestComplete fires from the shadow-test timer. The phase does not
// change; the shadow status flips from running to complete.
func (s *Session) onShadowTestComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseShadowTest || s.shadowComplete {
		return
	}

	s.shadowComplete = true
	s.shadowCancel = nil
	metrics.ObserveTransition(string(s.phase), string(models.TriggerShadowTestComplete))
	s.record("Shadow Test Completed", fmt.Sprintf("%s stable against baseline", models.CandidateModel.Version), models.SeveritySuccess)
	s.say(models.SenderAgent, models.MessageSuccess,
		fmt.Sprintf("Shadow test passed. %s is stable against the baseline; you can proceed to canary setup.", models.CandidateModel.Version), nil)
	s.emit(EventPhaseChanged, PhasePayload{Phase: string(s.phase), Trigger: string(models.TriggerShadowTestComplete), ShadowComplete: true})
}

// ContinueToSetup advances a completed shadow test to canary setup.
func (s *Session) ContinueToSetup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseShadowTest || !s.shadowComplete {
		return s.reject(models.TriggerContinueToSetup)
	}

	s.transition(models.PhaseCanarySetup, models.TriggerContinueToSetup)
	return nil
}

// StartCanary begins monitoring with the requested traffic split.
func (s *Session) StartCanary(percent, durationMin int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseCanarySetup {
		return s.reject(models.TriggerStartCanary)
	}
	if !validCanaryPercent(percent) {
		return &InvalidConfigurationError{Field: "canaryPercent", Reason: fmt.Sprintf("%d is not one of 1, 5, 10", percent)}
	}
	if durationMin <= 0 {
		return &InvalidConfigurationError{Field: "rolloutDurationMin", Reason: "must be positive"}
	}

	s.canaryPercent = percent
	s.rolloutDurationMin = durationMin

	s.transition(models.PhaseMonitoring, models.TriggerStartCanary)
	s.resetMonitoring()
	s.record("Canary Rollout Started",
		fmt.Sprintf("%d%% %s / %d%% %s, duration %dmin", percent, models.CandidateModel.Version, 100-percent, models.BaselineModel.Version, durationMin),
		models.SeverityInfo)
	s.startTicking()
	return nil
}

// RequestRollback opens the rollback confirmation gate. No state beyond the
// phase changes until the operator resolves the prompt.
func (s *Session) RequestRollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseAnomalyDetected {
		return s.reject(models.TriggerRollbackRequested)
	}

	s.transition(models.PhaseRollbackConfirm, models.TriggerRollbackRequested)
	s.say(models.SenderSystem, models.MessageAlert,
		fmt.Sprintf("Confirm rollback to %s? Canary traffic will be drained and %s disabled.", models.BaselineModel.Version, models.CandidateModel.Version), nil)
	return nil
}

// ConfirmRollback executes the rollback: sampler stopped, episode timers
// cancelled, snapshot captured, terminal phase entered.
func (s *Session) ConfirmRollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseRollbackConfirm {
		return s.reject(models.TriggerRollbackConfirmed)
	}

	s.stopTicking()
	elapsed := s.resolveEpisode()
	snapshot := s.captureSnapshot()

	s.transition(models.PhaseRolledBack, models.TriggerRollbackConfirmed)
	s.record("Rollback Executed",
		fmt.Sprintf("latency %.0fms, error rate %.2f%%, drift %.1f%%, adjusted confidence %d%%",
			snapshot.LatencyMs, snapshot.ErrorRate*100, snapshot.DriftUserRegion*100, snapshot.ConfidencePercent),
		models.SeveritySuccess)
	s.say(models.SenderAgent, models.MessageSuccess,
		fmt.Sprintf("Rolled back to %s. All traffic is back on the baseline model.", models.BaselineModel.Version), nil)
	metrics.ObserveDecision(metrics.DecisionRollback, elapsed)

	// A simulated network interrupt does not outlive the session it
	// occurred in.
	if !s.settings.NetworkEnabled() {
		if err := s.settings.SetNetworkEnabled(true); err != nil {
			s.logger.Warn("failed to reset network state", slog.Any("error", err))
		}
	}
	return nil
}

// CancelRollback dismisses the confirmation prompt; the decision is pending
// again.
func (s *Session) CancelRollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseRollbackConfirm {
		return s.reject(models.TriggerRollbackCancelled)
	}

	s.transition(models.PhaseAnomalyDetected, models.TriggerRollbackCancelled)
	return nil
}

// ContinueRollout resolves the pending anomaly decision in favour of the
// candidate. One-shot per episode: a second call is rejected.
func (s *Session) ContinueRollout(adjustedConfidence int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseAnomalyDetected || s.episode == nil {
		return s.reject(models.TriggerContinueRollout)
	}
	if adjustedConfidence < 0 || adjustedConfidence > 100 {
		return &InvalidConfigurationError{Field: "confidence", Reason: "must be between 0 and 100"}
	}

	s.confidence = adjustedConfidence
	elapsed := s.resolveEpisode()

	metrics.ObserveTransition(string(s.phase), string(models.TriggerContinueRollout))
	s.record("Rollout Continued", fmt.Sprintf("adjusted confidence %d%%", adjustedConfidence), models.SeverityInfo)
	s.say(models.SenderAgent, models.MessageNormal,
		fmt.Sprintf("Continuing the rollout at %d%% canary traffic with adjusted confidence %d%%. Monitoring stays active.", s.canaryPercent, adjustedConfidence), nil)
	metrics.ObserveDecision(metrics.DecisionContinue, elapsed)
	return nil
}

// Replay restarts monitoring from the warm-up window. Audit log and agent
// messages are preserved; metric history and the tick counter are not.
func (s *Session) Replay() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case models.PhaseMonitoring, models.PhaseAnomalyDetected, models.PhaseRollbackConfirm, models.PhaseRolledBack:
	default:
		return s.reject(models.TriggerReplay)
	}

	s.resolveEpisode()
	s.stopTicking()

	s.transition(models.PhaseMonitoring, models.TriggerReplay)
	s.resetMonitoring()
	s.record("Replay", fmt.Sprintf("monitoring restarted at %d%% canary traffic", s.canaryPercent), models.SeverityInfo)
	s.startTicking()
	return nil
}

// SetNetworkEnabled toggles the network flag. Persisted across sessions.
// While disabled, the sampler skips ticks without advancing the tick index.
func (s *Session) SetNetworkEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.settings.SetNetworkEnabled(enabled); err != nil {
		return err
	}
	event := "Network Enabled"
	severity := models.SeverityInfo
	if !enabled {
		event = "Network Disabled"
		severity = models.SeverityWarning
	}
	s.record(event, "", severity)
	return nil
}

// SetDefaultCanaryPercent updates the persisted default traffic split.
func (s *Session) SetDefaultCanaryPercent(percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !validCanaryPercent(percent) {
		return &InvalidConfigurationError{Field: "defaultCanaryPercent", Reason: fmt.Sprintf("%d is not one of 1, 5, 10", percent)}
	}
	return s.settings.SetDefaultCanaryPercent(percent)
}

// Close tears the session down, cancelling any outstanding timers.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTicking()
	s.resolveEpisode()
	if s.shadowCancel != nil {
		s.shadowCancel()
		s.shadowCancel = nil
	}
}

// Phase returns the current release phase.
func (s *Session) Phase() models.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// ShadowComplete reports whether the shadow test has finished.
func (s *Session) ShadowComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shadowComplete
}

// MetricHistory returns a snapshot of the bounded metric history, oldest
// first.
func (s *Session) MetricHistory() []models.MetricSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MetricSample, len(s.history))
	copy(out, s.history)
	return out
}

// Messages returns the agent conversation in creation order.
func (s *Session) Messages() []models.AgentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AgentMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// AuditLog exposes the session's audit trail.
func (s *Session) AuditLog() *audit.Log {
	return s.auditLog
}

// Config returns the current session configuration including the durable
// settings.
func (s *Session) Config() models.SessionConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SessionConfig{
		CanaryPercent:        s.canaryPercent,
		RolloutDurationMin:   s.rolloutDurationMin,
		NetworkEnabled:       s.settings.NetworkEnabled(),
		DefaultCanaryPercent: s.settings.DefaultCanaryPercent(),
	}
}

// Confidence returns the advisor's current rollback confidence.
func (s *Session) Confidence() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confidence
}

// DecisionTimedOut reports whether the current anomaly episode's decision
// window has elapsed unresolved.
func (s *Session) DecisionTimedOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.episode != nil && s.episode.timedOut
}

// onTick is the sampler callback. Skipped entirely while the network flag is
// off: no sample, no tick advance.
func (s *Session) onTick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseMonitoring && s.phase != models.PhaseAnomalyDetected {
		return
	}
	if !s.settings.NetworkEnabled() {
		return
	}

	sample := s.sampler.Sample(s.tick)
	s.appendSample(sample)
	metrics.ObserveSample()

	if s.evaluator.Confirm(s.phase, sample.TickIndex) {
		s.confirmAnomaly(sample)
	}
	s.tick++
}

// confirmAnomaly applies the anomaly-confirmed trigger. Called with the lock
// held, from the tick path only.
func (s *Session) confirmAnomaly(sample models.MetricSample) {
	if s.episode != nil {
		// Unreachable via the transition table; never stack episodes.
		s.logger.Error("anomaly confirmed with episode pending", slog.Int("tick", sample.TickIndex))
		return
	}

	s.confidence = defaultConfidence
	s.transition(models.PhaseAnomalyDetected, models.TriggerAnomalyConfirmed)
	s.record("Anomaly Detected",
		fmt.Sprintf("tick %d: latency %.0fms, error rate %.2f%%, drift %.1f%%", sample.TickIndex, sample.LatencyMs, sample.ErrorRate*100, sample.DriftUserRegion*100),
		models.SeverityWarning)
	metrics.ObserveAnomaly()

	ep := &episode{startedAt: s.now()}
	s.episode = ep

	for _, advisory := range s.advisor.Sequence(sample) {
		adv := advisory
		cancel := s.sched.AfterFunc(adv.Offset, func() {
			s.deliverAdvisory(ep, adv)
		})
		ep.cancels = append(ep.cancels, cancel)
	}

	timeoutCancel := s.sched.AfterFunc(s.timings.DecisionTimeout, func() {
		s.onDecisionTimeout(ep)
	})
	ep.cancels = append(ep.cancels, timeoutCancel)
}

func (s *Session) deliverAdvisory(ep *episode, adv Advisory) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.episode != ep {
		return
	}
	s.say(models.SenderAgent, adv.Kind, adv.Text, adv.Metadata)
}

func (s *Session) onDecisionTimeout(ep *episode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.episode != ep {
		return
	}
	ep.timedOut = true
	s.record("Decision Timeout", "no rollback/continue decision within the window", models.SeverityWarning)
	s.say(models.SenderSystem, models.MessageAlert, s.advisor.TimeoutText(), nil)
}

// resolveEpisode cancels all pending episode timers and returns the time the
// decision took. Zero when no episode was pending.
func (s *Session) resolveEpisode() time.Duration {
	if s.episode == nil {
		return 0
	}
	elapsed := s.now().Sub(s.episode.startedAt)
	s.episode.cancelTimers()
	s.episode = nil
	return elapsed
}

func (s *Session) resetMonitoring() {
	s.tick = 0
	s.evaluator.Reset()
	s.history = s.sampler.Warmup(warmupSamples)
}

func (s *Session) startTicking() {
	s.stopTicking()
	s.tickCancel = s.sched.TickFunc(s.timings.TickInterval, s.onTick)
}

func (s *Session) stopTicking() {
	if s.tickCancel != nil {
		s.tickCancel()
		s.tickCancel = nil
	}
}

func (s *Session) appendSample(sample models.MetricSample) {
	s.history = append(s.history, sample)
	if len(s.history) > historyCapacity {
		s.history = s.history[1:]
	}
	s.emit(EventMetricSample, sample)
}

// captureSnapshot reads the most recent sample, falling back to anomaly-base
// sentinels when the history is empty.
func (s *Session) captureSnapshot() models.AnomalySnapshot {
	snapshot := models.AnomalySnapshot{
		LatencyMs:         anomalyLatencyBaseMs,
		ErrorRate:         anomalyErrorRateBase,
		DriftUserRegion:   anomalyDriftRegionBase,
		ConfidencePercent: s.confidence,
	}
	if len(s.history) > 0 {
		last := s.history[len(s.history)-1]
		snapshot.LatencyMs = last.LatencyMs
		snapshot.ErrorRate = last.ErrorRate
		snapshot.DriftUserRegion = last.DriftUserRegion
	}
	return snapshot
}

// transition applies a phase change. Callers have already validated the
// trigger against the current phase.
func (s *Session) transition(to models.Phase, trigger models.Trigger) {
	from := s.phase
	s.phase = to
	metrics.ObserveTransition(string(from), string(trigger))
	s.logger.Info("phase transition",
		slog.String("from", string(from)),
		slog.String("to", string(to)),
		slog.String("trigger", string(trigger)))
	s.emit(EventPhaseChanged, PhasePayload{Phase: string(to), Trigger: string(trigger), ShadowComplete: s.shadowComplete})
}

func (s *Session) reject(trigger models.Trigger) error {
	metrics.ObserveInvalidTransition(string(s.phase), string(trigger))
	s.logger.Warn("trigger rejected",
		slog.String("phase", string(s.phase)),
		slog.String("trigger", string(trigger)))
	return invalidTransition(s.phase, trigger)
}

func (s *Session) record(event, details string, severity models.Severity) {
	entry := s.auditLog.Record(event, details, severity)
	s.emit(EventAuditEntry, entry)
}

func (s *Session) say(sender models.Sender, kind models.MessageKind, text string, metadata map[string]string) {
	msg := models.AgentMessage{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: s.now().UTC(),
		Sender:    sender,
		Kind:      kind,
		Metadata:  metadata,
	}
	s.messages = append(s.messages, msg)
	s.emit(EventAgentMessage, msg)
}

func (s *Session) emit(eventType EventType, payload any) {
	if s.publish == nil {
		return
	}
	s.publish(Event{Type: eventType, Payload: payload})
}

func validCanaryPercent(percent int) bool {
	return percent == 1 || percent == 5 || percent == 10
}

// memorySettings is the fallback SettingsStore when no durable store is
// wired, used by tests and ad-hoc embedding.
type memorySettings struct {
	mu                   sync.Mutex
	networkEnabled       bool
	defaultCanaryPercent int
}

func newMemorySettings() *memorySettings {
	return &memorySettings{networkEnabled: true, defaultCanaryPercent: 5}
}

func (m *memorySettings) NetworkEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.networkEnabled
}

func (m *memorySettings) SetNetworkEnabled(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.networkEnabled = enabled
	return nil
}

func (m *memorySettings) DefaultCanaryPercent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaultCanaryPercent
}

func (m *memorySettings) SetDefaultCanaryPercent(percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultCanaryPercent = percent
	return nil
}
