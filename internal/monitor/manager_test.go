package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/avolkov/resource-sentinel/internal/domain/entity"
)

func registerSession(t *testing.T, m *Manager, clock *fakeClock, resourceID string, ratio float64) *Session {
	t.Helper()
	probe := &fakeProbe{id: resourceID}
	probe.setMeasure(func(ctx context.Context) (*entity.Snapshot, error) {
		return mkSnap(t, resourceID, ratio*1000, 1000, clock.Now()), nil
	})
	session := newTestSession(t, eventModePolicy(), SessionDeps{Probe: probe, Clock: clock})
	if err := m.Register(session); err != nil {
		t.Fatalf("Register(%s) error = %v", resourceID, err)
	}
	return session
}

func TestManagerRejectsDuplicateResource(t *testing.T) {
	clock := newFakeClock(time.Now())
	m := NewManager(newTestLogger())
	registerSession(t, m, clock, "res-1", 0.5)

	probe := &fakeProbe{id: "res-1"}
	probe.setMeasure(func(ctx context.Context) (*entity.Snapshot, error) {
		return mkSnap(t, "res-1", 100, 1000, clock.Now()), nil
	})
	dup := newTestSession(t, eventModePolicy(), SessionDeps{Probe: probe, Clock: clock})

	if err := m.Register(dup); err == nil {
		t.Fatal("expected error for duplicate resource id")
	}
}

func TestManagerStartStopAll(t *testing.T) {
	clock := newFakeClock(time.Now())
	m := NewManager(newTestLogger())
	first := registerSession(t, m, clock, "res-a", 0.5)
	second := registerSession(t, m, clock, "res-b", 0.6)

	if err := m.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	if first.State() != StateRunning || second.State() != StateRunning {
		t.Error("all sessions must be running after StartAll")
	}

	m.StopAll()
	if first.State() != StateStopped || second.State() != StateStopped {
		t.Error("all sessions must be stopped after StopAll")
	}
}

func TestManagerCheckNow(t *testing.T) {
	clock := newFakeClock(time.Now())
	m := NewManager(newTestLogger())
	session := registerSession(t, m, clock, "res-a", 0.5)

	if err := m.CheckNow("res-a"); err == nil {
		t.Error("CheckNow on an unstarted session must fail")
	}
	if err := m.CheckNow("missing"); err == nil {
		t.Error("CheckNow on an unknown resource must fail")
	}

	if err := m.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	defer m.StopAll()

	if err := m.CheckNow("res-a"); err != nil {
		t.Errorf("CheckNow() error = %v", err)
	}
	if session.Metrics().TotalProbes != 1 {
		t.Errorf("TotalProbes = %d, want 1", session.Metrics().TotalProbes)
	}
}

func TestManagerReport(t *testing.T) {
	clock := newFakeClock(time.Now())
	m := NewManager(newTestLogger())
	registerSession(t, m, clock, "res-b", 0.6)
	registerSession(t, m, clock, "res-a", 0.5)

	if err := m.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	defer m.StopAll()

	if err := m.CheckNow("res-a"); err != nil {
		t.Fatalf("CheckNow() error = %v", err)
	}

	report := m.Report()
	if len(report.Sessions) != 2 {
		t.Fatalf("report has %d sessions, want 2", len(report.Sessions))
	}
	if report.Sessions[0].ResourceID != "res-a" || report.Sessions[1].ResourceID != "res-b" {
		t.Error("report sessions must be sorted by resource id")
	}
	if !report.Healthy {
		t.Error("report must be healthy while no session is degraded")
	}
	if report.UptimeSeconds < 0 {
		t.Errorf("UptimeSeconds = %v, want non-negative", report.UptimeSeconds)
	}
}

func TestManagerReportUnhealthyWhenDegraded(t *testing.T) {
	clock := newFakeClock(time.Now())
	m := NewManager(newTestLogger())

	probe := &fakeProbe{id: "res-a"}
	probe.setMeasure(func(ctx context.Context) (*entity.Snapshot, error) {
		return mkSnap(t, "res-a", 500, 1000, clock.Now()), nil
	})
	health := &fakeHealth{available: false, failingSince: clock.Now()}
	session := newTestSession(t, eventModePolicy(), SessionDeps{Probe: probe, Health: health, Clock: clock})
	if err := m.Register(session); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := m.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	defer m.StopAll()

	_ = m.CheckNow("res-a") // degrades: backend down, no prior snapshot

	if m.Report().Healthy {
		t.Error("report must be unhealthy while a session is degraded")
	}
}
