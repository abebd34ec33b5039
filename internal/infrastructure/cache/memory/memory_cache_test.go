package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avolkov/resource-sentinel/pkg/logger"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(t *testing.T) (*Cache, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Now()}
	cache := New(time.Hour, clock, logger.New("error"))
	t.Cleanup(func() { _ = cache.Close() })
	return cache, clock
}

func TestGetOrComputeCachesValue(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	var computations atomic.Int64

	compute := func(ctx context.Context) (interface{}, error) {
		computations.Add(1)
		return "value", nil
	}

	value, hit, err := cache.GetOrCompute(ctx, "key", time.Minute, compute)
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if hit || value != "value" {
		t.Errorf("first call = (%v, %v), want (value, miss)", value, hit)
	}

	value, hit, err = cache.GetOrCompute(ctx, "key", time.Minute, compute)
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if !hit || value != "value" {
		t.Errorf("second call = (%v, %v), want (value, hit)", value, hit)
	}
	if computations.Load() != 1 {
		t.Errorf("compute ran %d times, want 1", computations.Load())
	}
}

func TestGetOrComputeDeduplicatesConcurrentCallers(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	var computations atomic.Int64
	gate := make(chan struct{})
	compute := func(ctx context.Context) (interface{}, error) {
		computations.Add(1)
		<-gate
		return 42, nil
	}

	const callers = 20
	var wg sync.WaitGroup
	results := make([]interface{}, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = cache.GetOrCompute(ctx, "shared", time.Minute, compute)
		}(i)
	}

	// Let the stragglers queue up behind the first computation.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	if computations.Load() != 1 {
		t.Errorf("compute ran %d times for %d concurrent callers, want 1", computations.Load(), callers)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
		if results[i] != 42 {
			t.Errorf("caller %d got %v, want 42", i, results[i])
		}
	}
}

func TestExpiredEntryRecomputed(t *testing.T) {
	cache, clock := newTestCache(t)
	ctx := context.Background()
	var computations atomic.Int64

	compute := func(ctx context.Context) (interface{}, error) {
		computations.Add(1)
		return computations.Load(), nil
	}

	if _, _, err := cache.GetOrCompute(ctx, "key", time.Minute, compute); err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}

	clock.Advance(2 * time.Minute)

	value, hit, err := cache.GetOrCompute(ctx, "key", time.Minute, compute)
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if hit {
		t.Error("expired entry must not be a hit")
	}
	if value != int64(2) {
		t.Errorf("value = %v, want the recomputed 2", value)
	}
}

func TestComputeErrorNotCached(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	var computations atomic.Int64
	wantErr := errors.New("backend down")

	failing := func(ctx context.Context) (interface{}, error) {
		computations.Add(1)
		return nil, wantErr
	}

	if _, _, err := cache.GetOrCompute(ctx, "key", time.Minute, failing); !errors.Is(err, wantErr) {
		t.Fatalf("GetOrCompute() error = %v, want %v", err, wantErr)
	}

	// A later call retries the computation rather than caching the failure.
	ok := func(ctx context.Context) (interface{}, error) {
		computations.Add(1)
		return "recovered", nil
	}
	value, hit, err := cache.GetOrCompute(ctx, "key", time.Minute, ok)
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if hit || value != "recovered" {
		t.Errorf("retry = (%v, %v), want (recovered, miss)", value, hit)
	}
	if computations.Load() != 2 {
		t.Errorf("compute ran %d times, want 2", computations.Load())
	}
}

func TestDeleteAndClear(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	put := func(v interface{}) func(context.Context) (interface{}, error) {
		return func(context.Context) (interface{}, error) { return v, nil }
	}
	if _, _, err := cache.GetOrCompute(ctx, "a", time.Minute, put(1)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := cache.GetOrCompute(ctx, "b", time.Minute, put(2)); err != nil {
		t.Fatal(err)
	}

	if err := cache.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d after delete, want 1", cache.Len())
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d after clear, want 0", cache.Len())
	}
}

func TestKeyNormalization(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	if _, _, err := cache.GetOrCompute(ctx, "  Key  ", time.Minute, func(context.Context) (interface{}, error) {
		return "v", nil
	}); err != nil {
		t.Fatal(err)
	}

	_, hit, err := cache.GetOrCompute(ctx, "key", time.Minute, func(context.Context) (interface{}, error) {
		return "other", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Error("case and whitespace variants of a key must collide")
	}
}

func TestZeroTTLNotStored(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	var computations atomic.Int64

	compute := func(ctx context.Context) (interface{}, error) {
		computations.Add(1)
		return "v", nil
	}

	for i := 0; i < 2; i++ {
		if _, _, err := cache.GetOrCompute(ctx, "key", 0, compute); err != nil {
			t.Fatal(err)
		}
	}
	if computations.Load() != 2 {
		t.Errorf("compute ran %d times with zero ttl, want 2", computations.Load())
	}
}
