package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/avolkov/resource-sentinel/pkg/logger"
)

const defaultDebounceWindow = 250 * time.Millisecond

// FileWatcher turns filesystem change events into probe triggers for
// event-driven sessions. Bursts of writes within the debounce window
// collapse into a single trigger.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	events   chan struct{}
	logger   *logger.Logger
}

// NewFileWatcher watches the given paths. Directories are watched
// non-recursively, matching fsnotify semantics.
func NewFileWatcher(paths []string, debounce time.Duration, log *logger.Logger) (*FileWatcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one path to watch is required")
	}
	if debounce <= 0 {
		debounce = defaultDebounceWindow
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	for _, path := range paths {
		if err := watcher.Add(path); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch %s: %w", path, err)
		}
	}

	return &FileWatcher{
		watcher:  watcher,
		debounce: debounce,
		events:   make(chan struct{}, 1),
		logger:   log,
	}, nil
}

// Events is the debounced trigger channel. It is closed when the watcher
// stops.
func (w *FileWatcher) Events() <-chan struct{} {
	return w.events
}

// Run pumps filesystem events until the context is cancelled. The first
// change starts the debounce timer; further changes within the window
// are absorbed into the same trigger.
func (w *FileWatcher) Run(ctx context.Context) {
	defer close(w.events)
	defer w.watcher.Close()

	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug("Filesystem change observed", "path", event.Name, "op", event.Op.String())
			if pending == nil {
				timer = time.NewTimer(w.debounce)
				pending = timer.C
			}

		case <-pending:
			pending = nil
			timer = nil
			select {
			case w.events <- struct{}{}:
			default:
				// A trigger is already queued; the scheduler will run.
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", "error", err.Error())
		}
	}
}

func relevant(event fsnotify.Event) bool {
	return event.Op.Has(fsnotify.Write) ||
		event.Op.Has(fsnotify.Create) ||
		event.Op.Has(fsnotify.Remove) ||
		event.Op.Has(fsnotify.Rename)
}
