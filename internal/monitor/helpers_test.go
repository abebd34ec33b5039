package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/avolkov/resource-sentinel/internal/application/dto"
	"github.com/avolkov/resource-sentinel/internal/domain/entity"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

func newTestLogger() *logger.Logger {
	return logger.New("error")
}

// fakeClock is a settable clock. After fires immediately so retry and
// scheduler waits never slow tests down.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// stepClock blocks After callers until the test sends a tick.
type stepClock struct {
	fakeClock
	ticks chan time.Time
}

func newStepClock(start time.Time) *stepClock {
	return &stepClock{
		fakeClock: fakeClock{now: start},
		ticks:     make(chan time.Time),
	}
}

func (c *stepClock) After(time.Duration) <-chan time.Time {
	return c.ticks
}

func (c *stepClock) Tick(t *testing.T) {
	t.Helper()
	select {
	case c.ticks <- c.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("no scheduler waiting for a tick")
	}
}

type fakeSink struct {
	name     string
	mu       sync.Mutex
	alerts   []*dto.AlertDTO
	err      error
	panicing bool
}

func (s *fakeSink) Name() string {
	return s.name
}

func (s *fakeSink) Notify(_ context.Context, alert *dto.AlertDTO) error {
	if s.panicing {
		panic("sink panic")
	}
	s.mu.Lock()
	s.alerts = append(s.alerts, alert)
	s.mu.Unlock()
	return s.err
}

func (s *fakeSink) received() []*dto.AlertDTO {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*dto.AlertDTO, len(s.alerts))
	copy(result, s.alerts)
	return result
}

type fakeProbe struct {
	id      string
	mu      sync.Mutex
	measure func(ctx context.Context) (*entity.Snapshot, error)
	calls   int
}

func (p *fakeProbe) ResourceID() string {
	return p.id
}

func (p *fakeProbe) Measure(ctx context.Context) (*entity.Snapshot, error) {
	p.mu.Lock()
	p.calls++
	fn := p.measure
	p.mu.Unlock()
	return fn(ctx)
}

func (p *fakeProbe) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *fakeProbe) setMeasure(fn func(ctx context.Context) (*entity.Snapshot, error)) {
	p.mu.Lock()
	p.measure = fn
	p.mu.Unlock()
}

type fakeHealth struct {
	mu           sync.Mutex
	available    bool
	failingSince time.Time
	failures     int
}

func (h *fakeHealth) Available() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.available
}

func (h *fakeHealth) FailingSince() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failingSince
}

func (h *fakeHealth) ConsecutiveFailures() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failures
}

func (h *fakeHealth) set(available bool, failingSince time.Time) {
	h.mu.Lock()
	h.available = available
	h.failingSince = failingSince
	h.mu.Unlock()
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []*entity.Snapshot
}

func (f *fakeSaver) Save(_ context.Context, snapshot *entity.Snapshot) error {
	f.mu.Lock()
	f.saved = append(f.saved, snapshot)
	f.mu.Unlock()
	return nil
}

func (f *fakeSaver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func mkSnap(t *testing.T, resourceID string, value, limit float64, at time.Time) *entity.Snapshot {
	t.Helper()
	snapshot, err := entity.NewSnapshot(resourceID, valueobject.TokenBudget, value, limit, at)
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	return snapshot
}
