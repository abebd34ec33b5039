package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/avolkov/resource-sentinel/pkg/logger"
)

func newTestLogger() *logger.Logger {
	return logger.New("error")
}

func TestNewFileWatcherValidation(t *testing.T) {
	if _, err := NewFileWatcher(nil, time.Millisecond, newTestLogger()); err == nil {
		t.Error("expected an error for an empty path list")
	}
	if _, err := NewFileWatcher([]string{"/does/not/exist-4821"}, time.Millisecond, newTestLogger()); err == nil {
		t.Error("expected an error for a missing path")
	}
}

func TestFileWatcherEmitsTrigger(t *testing.T) {
	dir := t.TempDir()
	watcher, err := NewFileWatcher([]string{dir}, 20*time.Millisecond, newTestLogger())
	if err != nil {
		t.Fatalf("NewFileWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	if err := os.WriteFile(filepath.Join(dir, "context.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	select {
	case <-watcher.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a trigger")
	}
}

func TestFileWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	watcher, err := NewFileWatcher([]string{dir}, 100*time.Millisecond, newTestLogger())
	if err != nil {
		t.Fatalf("NewFileWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	path := filepath.Join(dir, "burst.json")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte{byte('0' + i)}, 0o644); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-watcher.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the coalesced trigger")
	}

	// The burst fits inside one debounce window, so no second trigger
	// should be queued behind the first.
	select {
	case _, ok := <-watcher.Events():
		if ok {
			t.Error("burst produced a second trigger")
		}
	case <-time.After(250 * time.Millisecond):
	}
}

func TestFileWatcherClosesEventsOnCancel(t *testing.T) {
	dir := t.TempDir()
	watcher, err := NewFileWatcher([]string{dir}, 20*time.Millisecond, newTestLogger())
	if err != nil {
		t.Fatalf("NewFileWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		watcher.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	if _, ok := <-watcher.Events(); ok {
		t.Error("events channel should be closed after Run returns")
	}
}

func TestRelevantOps(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want bool
	}{
		{fsnotify.Write, true},
		{fsnotify.Create, true},
		{fsnotify.Remove, true},
		{fsnotify.Rename, true},
		{fsnotify.Chmod, false},
	}
	for _, tt := range tests {
		if got := relevant(fsnotify.Event{Name: "x", Op: tt.op}); got != tt.want {
			t.Errorf("relevant(%v) = %v, want %v", tt.op, got, tt.want)
		}
	}
}
