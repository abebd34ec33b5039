package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/avolkov/resource-sentinel/internal/application/dto"
	"github.com/avolkov/resource-sentinel/internal/application/usecase"
	"github.com/avolkov/resource-sentinel/internal/domain/entity"
	"github.com/avolkov/resource-sentinel/internal/domain/service"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
	wsInfra "github.com/avolkov/resource-sentinel/internal/infrastructure/notification/websocket"
	"github.com/avolkov/resource-sentinel/internal/interfaces/http/handler"
	"github.com/avolkov/resource-sentinel/internal/interfaces/http/middleware"
	"github.com/avolkov/resource-sentinel/internal/monitor"
	"github.com/avolkov/resource-sentinel/pkg/config"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

const testToken = "test-token"

type memorySnapshotRepo struct {
	mu        sync.RWMutex
	snapshots []*entity.Snapshot
}

func newMemorySnapshotRepo() *memorySnapshotRepo {
	return &memorySnapshotRepo{snapshots: make([]*entity.Snapshot, 0)}
}

func (r *memorySnapshotRepo) Save(_ context.Context, snapshot *entity.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, snapshot)
	return nil
}

func (r *memorySnapshotRepo) SaveBatch(_ context.Context, snapshots []*entity.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, snapshots...)
	return nil
}

func (r *memorySnapshotRepo) FindByResource(_ context.Context, resourceID string, limit int) ([]*entity.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*entity.Snapshot, 0)
	for _, s := range r.snapshots {
		if s.ResourceID() != resourceID {
			continue
		}
		result = append(result, s)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (r *memorySnapshotRepo) FindByTimeRange(_ context.Context, resourceID string, timeRange valueobject.TimeRange) ([]*entity.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*entity.Snapshot, 0)
	for _, s := range r.snapshots {
		if s.ResourceID() != resourceID {
			continue
		}
		if timeRange.Contains(s.MeasuredAt()) {
			result = append(result, s)
		}
	}
	return result, nil
}

func (r *memorySnapshotRepo) FindLatestByResource(_ context.Context, resourceID string) (*entity.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *entity.Snapshot
	for _, s := range r.snapshots {
		if s.ResourceID() != resourceID {
			continue
		}
		if latest == nil || s.Newer(latest) {
			latest = s
		}
	}
	return latest, nil
}

func (r *memorySnapshotRepo) DeleteOlderThan(_ context.Context, timeRange valueobject.TimeRange) error {
	return nil
}

func (r *memorySnapshotRepo) Count(_ context.Context, resourceID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, s := range r.snapshots {
		if s.ResourceID() == resourceID {
			n++
		}
	}
	return n, nil
}

type stubProbe struct {
	id    string
	mu    sync.Mutex
	value float64
	err   error
	at    time.Time
}

func (p *stubProbe) ResourceID() string { return p.id }

func (p *stubProbe) Measure(_ context.Context) (*entity.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.at = p.at.Add(time.Second)
	return entity.NewSnapshot(p.id, valueobject.TokenBudget, p.value, 1000, p.at)
}

type testEnv struct {
	handler http.Handler
	repo    *memorySnapshotRepo
	probe   *stubProbe
	manager *monitor.Manager
}

func newTestEnv(t *testing.T, security config.SecurityConfig) *testEnv {
	t.Helper()
	log := logger.New("error")

	repo := newMemorySnapshotRepo()
	thresholds, err := service.NewThresholdPolicy(service.DefaultTierBounds())
	if err != nil {
		t.Fatalf("NewThresholdPolicy: %v", err)
	}

	dispatcher := monitor.NewAlertDispatcher(time.Minute, nil, log)
	manager := monitor.NewManager(log)

	probe := &stubProbe{id: "context-window", value: 500, at: time.Now().Add(-time.Hour)}
	policy := monitor.DefaultPolicy()
	policy.ProbeInterval = time.Hour
	policy.MaxInterval = time.Hour
	policy.HealthCheckInterval = time.Hour
	session, err := monitor.NewSession(policy, monitor.SessionDeps{
		Probe:      probe,
		Repository: repo,
		Dispatcher: dispatcher,
		Logger:     log,
	}, log)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := manager.Register(session); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := manager.StartAll(ctx); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	t.Cleanup(func() {
		manager.StopAll()
		cancel()
	})

	statusHandler := handler.NewStatusAPIHandler(
		usecase.NewGetEngineStatusUseCase(manager, log), log)
	alertsHandler := handler.NewAlertsAPIHandler(
		usecase.NewGetRecentAlertsUseCase(dispatcher, log), log)
	historyHandler := handler.NewHistoryAPIHandler(
		usecase.NewGetSnapshotHistoryUseCase(repo, service.NewSnapshotAggregator(), thresholds, nil, log),
		24*time.Hour, log)
	probeHandler := handler.NewProbeAPIHandler(
		usecase.NewTriggerProbeUseCase(manager, log), log)
	websocketHandler := handler.NewWebSocketHandler(wsInfra.NewHub(log), nil, middleware.AuthConfig{}, log)

	router := NewRouter(
		statusHandler,
		alertsHandler,
		historyHandler,
		probeHandler,
		websocketHandler,
		nil,
		security,
		log,
	)

	return &testEnv{
		handler: router.Setup(),
		repo:    repo,
		probe:   probe,
		manager: manager,
	}
}

func defaultSecurity() config.SecurityConfig {
	return config.SecurityConfig{
		AuthEnabled:    true,
		AuthToken:      testToken,
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	}
}

func (e *testEnv) do(t *testing.T, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpointsUnauthenticated(t *testing.T) {
	env := newTestEnv(t, defaultSecurity())

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := env.do(t, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestStatusEndpoint(t *testing.T) {
	env := newTestEnv(t, defaultSecurity())

	rec := env.do(t, http.MethodGet, "/api/v1/status", testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var report dto.EngineReportDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(report.Sessions) != 1 || report.Sessions[0].ResourceID != "context-window" {
		t.Errorf("sessions = %+v", report.Sessions)
	}
	if !report.Healthy {
		t.Error("engine should report healthy")
	}
}

func TestStatusEndpointRequiresToken(t *testing.T) {
	env := newTestEnv(t, defaultSecurity())

	if rec := env.do(t, http.MethodGet, "/api/v1/status", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token status = %d, want 401", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/status", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", rec.Code)
	}
}

func TestRecentAlertsEndpoint(t *testing.T) {
	env := newTestEnv(t, defaultSecurity())

	rec := env.do(t, http.MethodGet, "/api/v1/alerts/recent?limit=10", testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Alerts []*dto.AlertDTO `json:"alerts"`
		Count  int             `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode alerts: %v", err)
	}
	if payload.Count != len(payload.Alerts) {
		t.Errorf("count = %d but %d alerts", payload.Count, len(payload.Alerts))
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/alerts/recent?limit=abc", testToken); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	env := newTestEnv(t, defaultSecurity())

	now := time.Now().Add(-time.Minute)
	for i, value := range []float64{400, 600, 850} {
		snap, err := entity.NewSnapshot("context-window", valueobject.TokenBudget, value, 1000, now.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("NewSnapshot: %v", err)
		}
		if err := env.repo.Save(context.Background(), snap); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/v1/snapshots/history?resource=context-window&duration=1h", testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var history dto.SnapshotHistoryDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Snapshots) != 3 {
		t.Errorf("snapshots = %d, want 3", len(history.Snapshots))
	}
	if history.MaxRatio != 0.85 {
		t.Errorf("max ratio = %v, want 0.85", history.MaxRatio)
	}
}

func TestHistoryEndpointValidation(t *testing.T) {
	env := newTestEnv(t, defaultSecurity())

	cases := []struct {
		name   string
		target string
		want   int
	}{
		{"missing params", "/api/v1/snapshots/history", http.StatusBadRequest},
		{"bad duration", "/api/v1/snapshots/history?resource=r&duration=soon", http.StatusBadRequest},
		{"duration too long", "/api/v1/snapshots/history?resource=r&duration=48h", http.StatusBadRequest},
		{"wrong method", "", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			method := http.MethodGet
			target := tc.target
			if target == "" {
				method = http.MethodPost
				target = "/api/v1/snapshots/history?resource=r&duration=1h"
			}
			if rec := env.do(t, method, target, testToken); rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestTriggerProbeEndpoint(t *testing.T) {
	env := newTestEnv(t, defaultSecurity())

	rec := env.do(t, http.MethodPost, "/api/v1/probes/trigger?resource=context-window", testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["status"] != "ok" {
		t.Errorf("payload = %v", payload)
	}

	if rec := env.do(t, http.MethodPost, "/api/v1/probes/trigger?resource=unknown", testToken); rec.Code != http.StatusBadGateway {
		t.Errorf("unknown resource status = %d, want 502", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/probes/trigger", testToken); rec.Code != http.StatusBadRequest {
		t.Errorf("missing resource status = %d, want 400", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/probes/trigger?resource=context-window", testToken); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}
}

func TestRateLimitExceeded(t *testing.T) {
	security := defaultSecurity()
	security.RateLimitRPS = 1
	security.RateLimitBurst = 1
	env := newTestEnv(t, security)

	first := env.do(t, http.MethodGet, "/api/v1/status", testToken)
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d", first.Code)
	}
	second := env.do(t, http.MethodGet, "/api/v1/status", testToken)
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", second.Code)
	}
}
