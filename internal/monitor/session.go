package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/avolkov/resource-sentinel/internal/application/dto"
	"github.com/avolkov/resource-sentinel/internal/application/port"
	"github.com/avolkov/resource-sentinel/internal/domain/entity"
	"github.com/avolkov/resource-sentinel/internal/domain/service"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

// SessionState is the lifecycle state of a MonitorSession.
type SessionState string

const (
	StateCreated  SessionState = "created"
	StateRunning  SessionState = "running"
	StateDegraded SessionState = "degraded"
	StateStopped  SessionState = "stopped"
)

// ErrSessionStopped is returned for operations on a stopped session.
var ErrSessionStopped = errors.New("monitor session is stopped")

// SessionDeps are the collaborators a session composes. Probe is required;
// everything else is optional and skipped when nil.
type SessionDeps struct {
	Probe        port.ResourceProbe
	Health       port.HealthChecker
	Cache        port.Cache
	Repository   SnapshotSaver
	Events       port.EventPublisher
	Dispatcher   *AlertDispatcher
	Remediation  *RemediationEngine
	Prom         *PromMetrics
	Clock        port.Clock
	EventTrigger <-chan struct{}
	// ProbeSlots bounds in-flight probes across every session sharing it.
	// When nil the session gets its own, sized by the policy.
	ProbeSlots *semaphore.Weighted
	Logger     *logger.Logger
}

// SnapshotSaver is the subset of the snapshot repository a session needs.
type SnapshotSaver interface {
	Save(ctx context.Context, snapshot *entity.Snapshot) error
}

// Session owns the monitoring loop for one resource: it drives the probe
// through a scheduler, classifies measurements, remediates, and dispatches
// alerts. State: Created -> Running <-> Degraded -> Stopped (terminal).
type Session struct {
	policy    Policy
	threshold *service.ThresholdPolicy
	validator *service.SnapshotValidator
	retry     RetryPolicy
	deps      SessionDeps
	scheduler *Scheduler
	metrics   *sessionMetrics
	logger    *logger.Logger

	mu               sync.Mutex
	state            SessionState
	lastSnapshot     *entity.Snapshot
	degradedAlerted  bool
	escalatedAlerted bool
	cancel           context.CancelFunc
}

// NewSession validates the policy and builds a session. Configuration
// errors (invalid bounds, intervals) are the only synchronous failures.
func NewSession(policy Policy, deps SessionDeps, log *logger.Logger) (*Session, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid monitor policy: %w", err)
	}
	if deps.Probe == nil {
		return nil, errors.New("session requires a resource probe")
	}
	if deps.Dispatcher == nil {
		return nil, errors.New("session requires an alert dispatcher")
	}
	if deps.Clock == nil {
		deps.Clock = port.RealClock{}
	}
	if deps.Remediation == nil {
		engine, err := NewRemediationEngine(nil, policy.PreservedKeys, log)
		if err != nil {
			return nil, err
		}
		deps.Remediation = engine
	}
	if deps.ProbeSlots == nil {
		deps.ProbeSlots = semaphore.NewWeighted(int64(policy.MaxConcurrentProbes))
	}

	s := &Session{
		policy:    policy,
		threshold: policy.ThresholdPolicy(),
		validator: service.NewSnapshotValidator(),
		retry:     DefaultRetryPolicy(),
		deps:      deps,
		metrics:   newSessionMetrics(),
		logger:    log,
		state:     StateCreated,
	}

	s.scheduler = NewScheduler(SchedulerConfig{
		Mode:             policy.Mode,
		BaseInterval:     policy.ProbeInterval,
		JitterPercent:    policy.JitterPercent,
		FailureThreshold: policy.FailureThreshold,
		MaxInterval:      policy.MaxInterval,
		Events:           deps.EventTrigger,
		Clock:            deps.Clock,
	}, s.observe, log)

	return s, nil
}

// ResourceID returns the monitored resource's identifier.
func (s *Session) ResourceID() string {
	return s.deps.Probe.ResourceID()
}

// Start launches the session's scheduler. Idempotent while running.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateRunning, StateDegraded:
		return nil
	case StateStopped:
		return ErrSessionStopped
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateRunning
	s.metrics.markStarted(s.deps.Clock.Now())
	s.scheduler.Start(runCtx)

	s.logger.Info("Monitor session started",
		"resource_id", s.ResourceID(),
		"mode", string(s.policy.Mode),
		"interval", s.policy.ProbeInterval.String(),
	)
	return nil
}

// Stop cancels scheduling, drains in-flight work up to the grace period and
// discards cached entries. The session cannot be restarted.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == StateStopped || s.state == StateCreated {
		s.state = StateStopped
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	stopped := make(chan struct{})
	go func() {
		s.scheduler.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(s.policy.StopGracePeriod):
		s.logger.Warn("Session stop grace period elapsed with work still in flight",
			"resource_id", s.ResourceID())
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Clear(context.Background()); err != nil {
			s.logger.Error("Failed to clear session cache", err, "resource_id", s.ResourceID())
		}
	}

	s.logger.Info("Monitor session stopped", "resource_id", s.ResourceID())
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CheckNow runs an immediate one-shot probe without disturbing the
// periodic schedule.
func (s *Session) CheckNow() error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state != StateRunning && state != StateDegraded {
		return ErrSessionStopped
	}
	return s.scheduler.TriggerNow()
}

// Metrics returns a snapshot of session counters. Valid in any state.
func (s *Session) Metrics() *dto.SessionMetricsDTO {
	return s.metrics.report(s.ResourceID(), string(s.State()))
}

// LastSnapshot returns the most recent accepted snapshot, if any.
func (s *Session) LastSnapshot() *entity.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSnapshot
}

// observe is one full pipeline run: probe -> validate -> classify ->
// remediate -> alert -> publish. Errors never escape to crash the
// scheduler loop; they surface as metrics and alerts, and the scheduler
// uses the returned error only for its failure backoff.
func (s *Session) observe(ctx context.Context) error {
	if s.deps.Health != nil && !s.deps.Health.Available() {
		return s.observeDegraded(ctx)
	}
	s.recover()

	start := s.deps.Clock.Now()
	snapshot, err := s.measureWithRetry(ctx)
	s.observeProbeDuration(s.deps.Clock.Now().Sub(start))

	if err != nil {
		if port.IsBackendUnavailable(err) {
			return s.observeDegraded(ctx)
		}
		s.probeFailed(ctx, err)
		return err
	}

	return s.accept(ctx, snapshot)
}

// measureWithRetry retries transient failures with exponential backoff.
// Fatal and backend errors break out immediately. The slot is held across
// the retries so a flapping probe cannot hog more than its share.
func (s *Session) measureWithRetry(ctx context.Context) (*entity.Snapshot, error) {
	if err := s.deps.ProbeSlots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.deps.ProbeSlots.Release(1)

	var lastErr error
	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-s.deps.Clock.After(addJitter(s.retry.Delay(attempt-1), 0.1)):
			}
		}

		probeCtx, cancel := context.WithTimeout(ctx, s.policy.ProbeTimeout)
		snapshot, err := s.deps.Probe.Measure(probeCtx)
		cancel()

		if err == nil {
			return snapshot, nil
		}
		lastErr = err

		if errors.Is(err, context.DeadlineExceeded) {
			lastErr = port.TransientError(err)
			continue
		}
		if !port.IsTransient(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (s *Session) accept(ctx context.Context, snapshot *entity.Snapshot) error {
	if err := s.validator.Validate(snapshot); err != nil {
		s.probeFailed(ctx, port.FatalError(err))
		return err
	}
	if !s.validator.IsReasonable(snapshot) {
		err := fmt.Errorf("unreasonable ratio %.2f for resource %s", snapshot.Ratio(), snapshot.ResourceID())
		s.probeFailed(ctx, port.FatalError(err))
		return err
	}

	s.mu.Lock()
	if s.lastSnapshot != nil && !snapshot.Newer(s.lastSnapshot) {
		s.mu.Unlock()
		// A slow probe finished after a newer measurement already landed;
		// applying it would regress the tier classification.
		s.metrics.recordDiscarded()
		s.logger.Debug("Discarded out-of-order snapshot",
			"resource_id", snapshot.ResourceID(),
			"measured_at", snapshot.MeasuredAt(),
		)
		return nil
	}
	s.lastSnapshot = snapshot
	s.mu.Unlock()

	tier := s.threshold.Classify(snapshot.Ratio())
	s.metrics.recordProbe(snapshot.Ratio(), tier, snapshot.MeasuredAt(), snapshot.Stale())
	s.publishProm(snapshot, tier)

	if s.policy.AutoRemediate && tier.AtLeast(s.policy.RemediateFrom) && !snapshot.Stale() {
		s.remediate(ctx, snapshot, tier)
	}

	if alert, err := s.deps.Dispatcher.ObserveTier(ctx, snapshot, tier); err != nil {
		s.logger.Error("Failed to build transition alert", err, "resource_id", snapshot.ResourceID())
	} else if alert != nil {
		s.metrics.recordAlert()
		if s.deps.Prom != nil {
			s.deps.Prom.AlertsTotal.WithLabelValues(snapshot.ResourceID(), tier.String()).Inc()
			s.deps.Prom.TierTransitionsTotal.WithLabelValues(snapshot.ResourceID(), tier.String()).Inc()
		}
	}

	s.publish(ctx, snapshot, tier)
	return nil
}

// remediate runs the remediation pass. Remediation that already started is
// allowed to complete even if the session is being stopped, because a
// half-applied pass cannot be rolled back safely.
func (s *Session) remediate(ctx context.Context, snapshot *entity.Snapshot, tier valueobject.Tier) {
	result, err := s.deps.Remediation.Remediate(context.WithoutCancel(ctx), snapshot, tier)
	if err != nil {
		s.logger.Error("Remediation failed", err,
			"resource_id", snapshot.ResourceID(),
			"tier", tier.String(),
		)
		s.dispatchErrorAlert(ctx, snapshot.ResourceID(), valueobject.TierCritical,
			fmt.Sprintf("remediation failed for %s: %v", snapshot.ResourceID(), err))
		return
	}
	if result.NoOp() {
		return
	}

	s.metrics.recordRemediation()
	if s.deps.Prom != nil {
		s.deps.Prom.RemediationsTotal.WithLabelValues(snapshot.ResourceID(), tier.String()).Inc()
	}
	s.logger.Info("Remediation applied",
		"resource_id", snapshot.ResourceID(),
		"tier", tier.String(),
		"techniques", fmt.Sprintf("%v", result.TechniquesApplied()),
		"saved", fmt.Sprintf("%.0f", result.Saved()),
		"quality", fmt.Sprintf("%.0f", result.QualityScore()),
	)

	if s.deps.Events != nil {
		if err := s.deps.Events.PublishEvent(ctx, "sentinel.remediations", dto.FromRemediation(result)); err != nil {
			s.logger.Warn("Failed to publish remediation event", "error", err.Error())
		}
	}
}

// observeDegraded handles a probe cycle while the backend is unavailable:
// serve the last good snapshot marked stale, and escalate when the outage
// persists beyond the escalation window.
func (s *Session) observeDegraded(ctx context.Context) error {
	s.mu.Lock()
	entered := s.state == StateRunning
	if entered {
		s.state = StateDegraded
	}
	last := s.lastSnapshot
	alreadyAlerted := s.degradedAlerted
	alreadyEscalated := s.escalatedAlerted
	s.mu.Unlock()

	if entered {
		s.logger.Warn("Backend unavailable, session degraded", "resource_id", s.ResourceID())
	}

	if !alreadyAlerted {
		s.markDegradedAlerted()
		s.dispatchErrorAlert(ctx, s.ResourceID(), valueobject.TierCritical,
			fmt.Sprintf("backend unavailable for %s, monitoring is stale", s.ResourceID()))
	}

	if !alreadyEscalated && s.outagePastEscalationWindow() {
		s.markEscalated()
		s.dispatchErrorAlert(ctx, s.ResourceID(), valueobject.TierEmergency,
			fmt.Sprintf("backend outage for %s exceeded the escalation window", s.ResourceID()))
	}

	if last == nil {
		err := fmt.Errorf("%w: no prior snapshot for %s", port.ErrBackendUnavailable, s.ResourceID())
		s.metrics.recordFailure()
		return err
	}

	stale := last.MarkStale()
	tier := s.threshold.Classify(stale.Ratio())
	s.metrics.recordProbe(stale.Ratio(), tier, s.deps.Clock.Now(), true)
	if s.deps.Prom != nil {
		s.deps.Prom.StaleServesTotal.WithLabelValues(s.ResourceID()).Inc()
	}
	s.publish(ctx, stale, tier)
	return nil
}

func (s *Session) outagePastEscalationWindow() bool {
	if s.deps.Health == nil || s.policy.EscalationWindow <= 0 {
		return false
	}
	failingSince := s.deps.Health.FailingSince()
	if failingSince.IsZero() {
		return false
	}
	return s.deps.Clock.Now().Sub(failingSince) >= s.policy.EscalationWindow
}

// recover transitions Degraded back to Running after the backend heals.
func (s *Session) recover() {
	s.mu.Lock()
	wasDegraded := s.state == StateDegraded
	if wasDegraded {
		s.state = StateRunning
	}
	s.degradedAlerted = false
	s.escalatedAlerted = false
	s.mu.Unlock()

	if wasDegraded {
		s.logger.Info("Backend recovered, session running", "resource_id", s.ResourceID())
	}
}

func (s *Session) markDegradedAlerted() {
	s.mu.Lock()
	s.degradedAlerted = true
	s.mu.Unlock()
}

func (s *Session) markEscalated() {
	s.mu.Lock()
	s.escalatedAlerted = true
	s.mu.Unlock()
}

// probeFailed converts a probe error into metrics and an action-required
// alert. The scheduler loop itself never sees a panic or crash.
func (s *Session) probeFailed(ctx context.Context, err error) {
	s.metrics.recordFailure()
	if s.deps.Prom != nil {
		s.deps.Prom.ProbesTotal.WithLabelValues(s.ResourceID(), "error").Inc()
	}
	s.logger.Error("Probe failed", err, "resource_id", s.ResourceID())

	tier := valueobject.TierAlert
	if port.IsFatal(err) {
		tier = valueobject.TierCritical
	}
	s.dispatchErrorAlert(ctx, s.ResourceID(), tier,
		fmt.Sprintf("probe failed for %s: %v", s.ResourceID(), err))
}

func (s *Session) dispatchErrorAlert(ctx context.Context, resourceID string, tier valueobject.Tier, message string) {
	alert, err := entity.NewAlert(resourceID, tier, message, true, recommendedActions(tier))
	if err != nil {
		s.logger.Error("Failed to build error alert", err, "resource_id", resourceID)
		return
	}
	s.deps.Dispatcher.Dispatch(ctx, alert)
	s.metrics.recordAlert()
}

func (s *Session) publish(ctx context.Context, snapshot *entity.Snapshot, tier valueobject.Tier) {
	if s.deps.Repository != nil {
		if err := s.deps.Repository.Save(ctx, snapshot); err != nil {
			s.logger.Warn("Failed to persist snapshot", "error", err.Error())
		}
	}
	if s.deps.Events != nil {
		event := struct {
			Snapshot *dto.SnapshotDTO `json:"snapshot"`
			Tier     string           `json:"tier"`
		}{dto.FromSnapshot(snapshot), tier.String()}
		if err := s.deps.Events.PublishEvent(ctx, "sentinel.snapshots", event); err != nil {
			s.logger.Warn("Failed to publish snapshot event", "error", err.Error())
		}
	}
}

func (s *Session) publishProm(snapshot *entity.Snapshot, tier valueobject.Tier) {
	if s.deps.Prom == nil {
		return
	}
	s.deps.Prom.ProbesTotal.WithLabelValues(snapshot.ResourceID(), "ok").Inc()
	s.deps.Prom.CurrentRatio.WithLabelValues(snapshot.ResourceID()).Set(snapshot.Ratio())
}

func (s *Session) observeProbeDuration(d time.Duration) {
	if s.deps.Prom == nil {
		return
	}
	s.deps.Prom.ProbeDurationSec.WithLabelValues(s.ResourceID()).Observe(d.Seconds())
}
