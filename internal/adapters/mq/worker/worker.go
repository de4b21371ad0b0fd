// Package worker runs dataset reloads requested through the reload queue.
//
// A single worker consumes the queue, so at most one ingestion is in flight.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/speciesdex/internal/adapters/mq/queue"
	"github.com/okian/speciesdex/pkg/logger"
)

// Reloader performs one full ingestion.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Queue defines how the worker receives requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Request
}

// Worker processes reload requests.
type Worker interface {
	// Run consumes requests until ctx is done, the queue closes or Shutdown
	// is called.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the current reload.
	Shutdown(ctx context.Context) error
}

// ReloadWorker implements Worker.
type ReloadWorker struct {
	queue    Queue
	reloader Reloader
	name     string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewReloadWorker creates a worker.
func NewReloadWorker(q Queue, r Reloader, opts ...Option) *ReloadWorker {
	w := &ReloadWorker{
		queue:    q,
		reloader: r,
		name:     "reload-worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.NewNop()
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *ReloadWorker) Run(ctx context.Context) {
	defer close(w.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			w.process(ctx, req)
		}
	}
}

func (w *ReloadWorker) process(ctx context.Context, req queue.Request) {
	start := time.Now()
	err := w.reloader.Reload(ctx)
	fields := []logger.Field{
		logger.String("reason", req.Reason),
		logger.Int64("waited_ms", start.Sub(req.At).Milliseconds()),
		logger.Int64("took_ms", time.Since(start).Milliseconds()),
	}
	if err != nil {
		w.logger.Error(ctx, "reload failed", append(fields, logger.Error(err))...)
		return
	}
	w.logger.Debug(ctx, "reload finished", fields...)
}

// Shutdown signals the loop to stop and waits for it.
func (w *ReloadWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *ReloadWorker) Done() <-chan struct{} { return w.done }
