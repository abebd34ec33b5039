package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avolkov/resource-sentinel/internal/application/port"
	"github.com/avolkov/resource-sentinel/internal/domain/entity"
	"github.com/avolkov/resource-sentinel/internal/domain/service"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
	memorycache "github.com/avolkov/resource-sentinel/internal/infrastructure/cache/memory"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

func newTestLogger() *logger.Logger {
	return logger.New("error")
}

type fakeSnapshotRepo struct {
	mu        sync.Mutex
	snapshots []*entity.Snapshot
	err       error
	queries   atomic.Int64
	gate      chan struct{}
}

func (r *fakeSnapshotRepo) Save(context.Context, *entity.Snapshot) error        { return nil }
func (r *fakeSnapshotRepo) SaveBatch(context.Context, []*entity.Snapshot) error { return nil }

func (r *fakeSnapshotRepo) FindByResource(context.Context, string, int) ([]*entity.Snapshot, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeSnapshotRepo) FindByTimeRange(_ context.Context, _ string, _ valueobject.TimeRange) ([]*entity.Snapshot, error) {
	r.queries.Add(1)
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.snapshots, nil
}

func (r *fakeSnapshotRepo) FindLatestByResource(context.Context, string) (*entity.Snapshot, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeSnapshotRepo) DeleteOlderThan(context.Context, valueobject.TimeRange) error { return nil }
func (r *fakeSnapshotRepo) Count(context.Context, string) (int64, error)                 { return 0, nil }

func historySnapshot(t *testing.T, value float64, at time.Time) *entity.Snapshot {
	t.Helper()
	snap, err := entity.NewSnapshot("context-window", valueobject.TokenBudget, value, 1000, at)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	return snap
}

func newHistoryUseCase(t *testing.T, repo *fakeSnapshotRepo, cache port.Cache) *GetSnapshotHistoryUseCase {
	t.Helper()
	policy, err := service.NewThresholdPolicy(service.DefaultTierBounds())
	if err != nil {
		t.Fatalf("NewThresholdPolicy: %v", err)
	}
	return NewGetSnapshotHistoryUseCase(repo, service.NewSnapshotAggregator(), policy, cache, newTestLogger())
}

func testRange(t *testing.T) valueobject.TimeRange {
	t.Helper()
	tr, err := valueobject.NewTimeRangeFromDuration(time.Hour)
	if err != nil {
		t.Fatalf("NewTimeRangeFromDuration: %v", err)
	}
	return tr
}

func TestGetSnapshotHistoryAggregates(t *testing.T) {
	now := time.Now().Add(-time.Minute)
	repo := &fakeSnapshotRepo{snapshots: []*entity.Snapshot{
		historySnapshot(t, 400, now.Add(-3*time.Minute)),
		historySnapshot(t, 850, now.Add(-time.Minute)),
		historySnapshot(t, 600, now.Add(-2*time.Minute)),
	}}
	uc := newHistoryUseCase(t, repo, nil)

	history, err := uc.Execute(context.Background(), "context-window", testRange(t))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if history.ResourceID != "context-window" {
		t.Errorf("resource id = %q", history.ResourceID)
	}
	if len(history.Snapshots) != 3 {
		t.Fatalf("snapshots = %d, want 3", len(history.Snapshots))
	}
	if history.Snapshots[0].Ratio != 0.4 || history.Snapshots[2].Ratio != 0.85 {
		t.Errorf("snapshots not sorted ascending by time: first %v last %v",
			history.Snapshots[0].Ratio, history.Snapshots[2].Ratio)
	}
	if got, want := history.AverageRatio, (0.4+0.85+0.6)/3; diff(got, want) > 1e-9 {
		t.Errorf("average = %v, want %v", got, want)
	}
	if history.MinRatio != 0.4 || history.MaxRatio != 0.85 {
		t.Errorf("min/max = %v/%v, want 0.4/0.85", history.MinRatio, history.MaxRatio)
	}
	if history.TierHistogram["normal"] != 2 || history.TierHistogram["warning"] != 1 {
		t.Errorf("histogram = %v", history.TierHistogram)
	}
}

func diff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

func TestGetSnapshotHistoryEmpty(t *testing.T) {
	uc := newHistoryUseCase(t, &fakeSnapshotRepo{}, nil)

	history, err := uc.Execute(context.Background(), "context-window", testRange(t))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(history.Snapshots) != 0 {
		t.Errorf("snapshots = %d, want 0", len(history.Snapshots))
	}
	if history.AverageRatio != 0 {
		t.Errorf("average = %v, want 0", history.AverageRatio)
	}
}

func TestGetSnapshotHistoryValidation(t *testing.T) {
	uc := newHistoryUseCase(t, &fakeSnapshotRepo{}, nil)
	if _, err := uc.Execute(context.Background(), "", testRange(t)); err == nil {
		t.Error("expected an error for an empty resource id")
	}
}

func TestGetSnapshotHistoryRepositoryError(t *testing.T) {
	repo := &fakeSnapshotRepo{err: errors.New("connection reset")}
	uc := newHistoryUseCase(t, repo, nil)

	if _, err := uc.Execute(context.Background(), "context-window", testRange(t)); err == nil {
		t.Error("expected the repository error to surface")
	}
}

func TestGetSnapshotHistoryCachesResults(t *testing.T) {
	repo := &fakeSnapshotRepo{snapshots: []*entity.Snapshot{
		historySnapshot(t, 500, time.Now().Add(-time.Minute)),
	}}
	cache := memorycache.New(time.Hour, port.RealClock{}, newTestLogger())
	defer cache.Close()
	uc := newHistoryUseCase(t, repo, cache)

	tr := testRange(t)
	first, err := uc.Execute(context.Background(), "context-window", tr)
	if err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}
	second, err := uc.Execute(context.Background(), "context-window", tr)
	if err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}
	if repo.queries.Load() != 1 {
		t.Errorf("repository queries = %d, want 1", repo.queries.Load())
	}
	if first.AverageRatio != second.AverageRatio || len(second.Snapshots) != 1 {
		t.Errorf("cached history diverged: %+v vs %+v", first, second)
	}
}

func TestGetSnapshotHistoryDedupesConcurrentQueries(t *testing.T) {
	repo := &fakeSnapshotRepo{
		snapshots: []*entity.Snapshot{historySnapshot(t, 500, time.Now().Add(-time.Minute))},
		gate:      make(chan struct{}),
	}
	cache := memorycache.New(time.Hour, port.RealClock{}, newTestLogger())
	defer cache.Close()
	uc := newHistoryUseCase(t, repo, cache)

	tr := testRange(t)
	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Execute(context.Background(), "context-window", tr)
			errs <- err
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for repo.queries.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(repo.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
	}
	if got := repo.queries.Load(); got != 1 {
		t.Errorf("repository queries = %d, want 1", got)
	}
}
