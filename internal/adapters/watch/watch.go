// Package watch triggers dataset reloads when the local CSV file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/okian/speciesdex/internal/adapters/mq/queue"
	"github.com/okian/speciesdex/pkg/logger"
)

const (
	defaultDebounce = 300 * time.Millisecond
	tickInterval    = 50 * time.Millisecond
)

// Enqueuer accepts reload requests.
type Enqueuer interface {
	Enqueue(ctx context.Context, r queue.Request) bool
}

// Stats counts watcher activity.
type Stats struct {
	Events    int
	Triggered int
	Errors    int
	LastEvent time.Time
}

// FileWatcher watches the directory of one file, so editors that replace
// the file by rename are still seen, and debounces bursts of events.
type FileWatcher struct {
	path     string
	dir      string
	target   Enqueuer
	debounce time.Duration
	logger   logger.Logger

	mu      sync.Mutex
	pending time.Time
	stats   Stats
}

// Option configures a FileWatcher.
type Option func(*FileWatcher)

// WithDebounce sets the quiet period before a reload is requested.
func WithDebounce(d time.Duration) Option {
	return func(w *FileWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(w *FileWatcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a watcher for path that enqueues into target.
func New(path string, target Enqueuer, opts ...Option) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	w := &FileWatcher{
		path:     abs,
		dir:      filepath.Dir(abs),
		target:   target,
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.NewNop()
	}
	w.logger = w.logger.Named("watch")
	return w, nil
}

// Run watches until ctx is done. It returns an error only when the watch
// cannot be set up.
func (w *FileWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info(ctx, "watching csv", logger.String("path", w.path))

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
			w.logger.Warn(ctx, "watch error", logger.Error(err))
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *FileWatcher) handle(ctx context.Context, ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return
	}
	w.logger.Debug(ctx, "csv changed", logger.String("op", ev.Op.String()))

	w.mu.Lock()
	now := time.Now()
	w.pending = now
	w.stats.Events++
	w.stats.LastEvent = now
	w.mu.Unlock()
}

func (w *FileWatcher) flush(ctx context.Context) {
	w.mu.Lock()
	if w.pending.IsZero() || time.Since(w.pending) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.pending = time.Time{}
	w.stats.Triggered++
	w.mu.Unlock()

	if !w.target.Enqueue(ctx, queue.Request{Reason: "file_changed"}) {
		w.logger.Debug(ctx, "reload already pending")
	}
}

// Stats returns a copy of the counters.
func (w *FileWatcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
