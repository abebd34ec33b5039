package research

import (
	"context"
	"sync"
	"time"

	"github.com/avolkov/resource-sentinel/internal/application/port"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

// HealthPinger checks whether a backend answers at all.
type HealthPinger interface {
	Health(ctx context.Context) error
}

// HealthMonitor polls a backend's health endpoint in the background and
// reports availability. The backend counts as unavailable only after the
// failure threshold is reached, so one dropped ping does not flap the
// engine into degraded mode.
type HealthMonitor struct {
	pinger    HealthPinger
	interval  time.Duration
	timeout   time.Duration
	threshold int
	clock     port.Clock
	logger    *logger.Logger

	mu           sync.Mutex
	failures     int
	failingSince time.Time

	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func NewHealthMonitor(
	pinger HealthPinger,
	interval time.Duration,
	timeout time.Duration,
	threshold int,
	clock port.Clock,
	log *logger.Logger,
) *HealthMonitor {
	if interval <= 0 {
		interval = 150 * time.Second
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if threshold <= 0 {
		threshold = 3
	}
	if clock == nil {
		clock = port.RealClock{}
	}
	return &HealthMonitor{
		pinger:    pinger,
		interval:  interval,
		timeout:   timeout,
		threshold: threshold,
		clock:     clock,
		logger:    log,
	}
}

// Start launches the polling loop. Idempotent.
func (m *HealthMonitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.loop(runCtx)
}

// Stop halts the polling loop and waits for it to exit.
func (m *HealthMonitor) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	cancel()
	<-done
}

func (m *HealthMonitor) loop(ctx context.Context) {
	defer close(m.done)

	m.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.clock.After(m.interval):
			m.check(ctx)
		}
	}
}

func (m *HealthMonitor) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.pinger.Health(pingCtx)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		if m.failures >= m.threshold {
			m.logger.Info("Backend health restored",
				"after_failures", m.failures,
			)
		}
		m.failures = 0
		m.failingSince = time.Time{}
		return
	}

	m.failures++
	if m.failingSince.IsZero() {
		m.failingSince = m.clock.Now()
	}
	if m.failures == m.threshold {
		m.logger.Warn("Backend marked unavailable",
			"consecutive_failures", m.failures,
			"error", err.Error(),
		)
	}
}

// Available reports whether the backend is currently considered healthy.
func (m *HealthMonitor) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures < m.threshold
}

// FailingSince returns the start of the current failure streak, or the
// zero time when healthy.
func (m *HealthMonitor) FailingSince() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failingSince
}

// ConsecutiveFailures returns the current failure streak length.
func (m *HealthMonitor) ConsecutiveFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}
