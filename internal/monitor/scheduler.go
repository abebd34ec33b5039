package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/avolkov/resource-sentinel/internal/application/port"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

// ProbeFunc is the unit of work the scheduler drives. The error return
// feeds the consecutive-failure backoff.
type ProbeFunc func(ctx context.Context) error

// SchedulerConfig configures one scheduler instance.
type SchedulerConfig struct {
	Mode             ScheduleMode
	BaseInterval     time.Duration
	JitterPercent    float64
	FailureThreshold int
	MaxInterval      time.Duration
	// Events supplies debounced change notifications in event mode.
	Events <-chan struct{}
	Clock  port.Clock
}

// Scheduler drives periodic or event-driven probe invocations with jitter
// and failure backoff. Probes are serialized: the next tick is armed only
// after the previous run returns, so a slow probe never overlaps itself.
type Scheduler struct {
	cfg    SchedulerConfig
	run    ProbeFunc
	logger *logger.Logger

	trigger chan chan error

	mu              sync.Mutex
	consecutiveFail int
	started         bool
	cancel          context.CancelFunc
	done            chan struct{}
}

// NewScheduler creates a scheduler for the given probe work.
func NewScheduler(cfg SchedulerConfig, run ProbeFunc, log *logger.Logger) *Scheduler {
	if cfg.Clock == nil {
		cfg.Clock = port.RealClock{}
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 16 * cfg.BaseInterval
	}
	return &Scheduler{
		cfg:     cfg,
		run:     run,
		logger:  log,
		trigger: make(chan chan error, 1),
	}
}

// Start launches the scheduling loop. Idempotent while running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.started = true
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(loopCtx)
}

// Stop cancels the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.started = false
	s.mu.Unlock()

	cancel()
	<-done
}

// TriggerNow requests an immediate one-shot probe without disturbing the
// periodic cadence. Returns the probe error, nil if a trigger was already
// pending, or ErrSessionStopped when the loop is not running.
func (s *Scheduler) TriggerNow() error {
	s.mu.Lock()
	started := s.started
	done := s.done
	s.mu.Unlock()
	if !started {
		return ErrSessionStopped
	}

	reply := make(chan error, 1)
	select {
	case s.trigger <- reply:
	default:
		return nil
	}

	select {
	case err := <-reply:
		return err
	case <-done:
		// The loop answers pending triggers on its way out, so check
		// for a reply that raced the shutdown before giving up.
		select {
		case err := <-reply:
			return err
		default:
			return ErrSessionStopped
		}
	}
}

// ConsecutiveFailures returns the current failure streak.
func (s *Scheduler) ConsecutiveFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveFail
}

// CurrentInterval returns the effective interval given the failure streak,
// before jitter.
func (s *Scheduler) CurrentInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return widenInterval(s.cfg.BaseInterval, s.consecutiveFail, s.cfg.FailureThreshold, s.cfg.MaxInterval)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	defer s.drainTriggers()

	for {
		var wait <-chan time.Time
		var events <-chan struct{}

		if s.cfg.Mode == ModeEvent {
			events = s.cfg.Events
		} else {
			wait = s.cfg.Clock.After(addJitter(s.CurrentInterval(), s.cfg.JitterPercent))
		}

		select {
		case <-ctx.Done():
			return

		case <-wait:
			s.execute(ctx)

		case _, ok := <-events:
			if !ok {
				// Event source closed; nothing left to drive this session.
				s.logger.Warn("Scheduler event source closed")
				return
			}
			s.execute(ctx)

		case reply := <-s.trigger:
			reply <- s.execute(ctx)
		}
	}
}

// drainTriggers answers triggers that arrived too late for the loop to
// serve, so a concurrent TriggerNow never blocks on a dead loop.
func (s *Scheduler) drainTriggers() {
	for {
		select {
		case reply := <-s.trigger:
			reply <- ErrSessionStopped
		default:
			return
		}
	}
}

func (s *Scheduler) execute(ctx context.Context) error {
	err := s.run(ctx)

	s.mu.Lock()
	if err != nil {
		s.consecutiveFail++
		streak := s.consecutiveFail
		s.mu.Unlock()
		s.logger.Warn("Scheduled probe failed",
			"consecutive_failures", streak,
			"error", err.Error(),
		)
		return err
	}
	if s.consecutiveFail > 0 {
		s.logger.Info("Probe recovered, resetting interval", "previous_failures", s.consecutiveFail)
	}
	s.consecutiveFail = 0
	s.mu.Unlock()
	return nil
}
