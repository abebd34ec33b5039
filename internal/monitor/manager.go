package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/avolkov/resource-sentinel/internal/application/dto"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

// Manager owns a set of sessions keyed by resource id and aggregates
// their metrics into one engine report.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	started  time.Time
	logger   *logger.Logger
}

func NewManager(log *logger.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		logger:   log,
	}
}

// Register adds a session. Registering a second session for the same
// resource is a configuration mistake and fails.
func (m *Manager) Register(session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := session.ResourceID()
	if _, exists := m.sessions[id]; exists {
		return fmt.Errorf("session already registered for resource %s", id)
	}
	m.sessions[id] = session
	return nil
}

// StartAll starts every registered session. The first error aborts the
// startup so the caller can shut down cleanly.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	m.started = time.Now()
	sessions := m.snapshotLocked()
	m.mu.Unlock()

	for _, session := range sessions {
		if err := session.Start(ctx); err != nil {
			return fmt.Errorf("start session %s: %w", session.ResourceID(), err)
		}
	}
	m.logger.Info("All monitor sessions started", "sessions", fmt.Sprintf("%d", len(sessions)))
	return nil
}

// StopAll stops every session concurrently and waits for all of them.
func (m *Manager) StopAll() {
	m.mu.RLock()
	sessions := m.snapshotLocked()
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, session := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Stop()
		}(session)
	}
	wg.Wait()
	m.logger.Info("All monitor sessions stopped")
}

// Session returns the session for a resource id, if registered.
func (m *Manager) Session(resourceID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[resourceID]
	return session, ok
}

// CheckNow triggers an immediate probe for one resource.
func (m *Manager) CheckNow(resourceID string) error {
	session, ok := m.Session(resourceID)
	if !ok {
		return fmt.Errorf("no session for resource %s", resourceID)
	}
	return session.CheckNow()
}

// Report aggregates per-session metrics, ordered by resource id so the
// output is stable for API consumers.
func (m *Manager) Report() *dto.EngineReportDTO {
	m.mu.RLock()
	sessions := m.snapshotLocked()
	started := m.started
	m.mu.RUnlock()

	report := &dto.EngineReportDTO{
		GeneratedAt: time.Now(),
		Sessions:    make([]*dto.SessionMetricsDTO, 0, len(sessions)),
	}
	if !started.IsZero() {
		report.UptimeSeconds = time.Since(started).Seconds()
	}
	report.Healthy = true
	for _, session := range sessions {
		metrics := session.Metrics()
		report.Sessions = append(report.Sessions, metrics)
		if metrics.State == string(StateDegraded) {
			report.Healthy = false
		}
	}
	sort.Slice(report.Sessions, func(i, j int) bool {
		return report.Sessions[i].ResourceID < report.Sessions[j].ResourceID
	})
	return report
}

func (m *Manager) snapshotLocked() []*Session {
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}
