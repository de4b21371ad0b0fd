package worker_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/speciesdex/internal/adapters/mq/queue"
	"github.com/okian/speciesdex/internal/adapters/mq/worker"
	logging "github.com/okian/speciesdex/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	_ = logging.Init(logging.WithOutput(io.Discard))
	goleak.VerifyTestMain(m)
}

type mockReloader struct {
	calls   atomic.Int32
	active  atomic.Int32
	overlap atomic.Bool
	err     error
	delay   time.Duration
	mu      sync.Mutex
	seen    chan struct{}
}

func newMockReloader() *mockReloader {
	return &mockReloader{seen: make(chan struct{}, 16)}
}

func (m *mockReloader) Reload(ctx context.Context) error {
	if m.active.Add(1) > 1 {
		m.overlap.Store(true)
	}
	defer m.active.Add(-1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.calls.Add(1)
	m.seen <- struct{}{}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func waitCalls(m *mockReloader, n int) bool {
	for i := 0; i < n; i++ {
		select {
		case <-m.seen:
		case <-time.After(2 * time.Second):
			return false
		}
	}
	return true
}

func TestReloadWorker(t *testing.T) {
	convey.Convey("Given a reload worker on a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		r := newMockReloader()
		w := worker.NewReloadWorker(q, r, worker.WithName("test-reload"), worker.WithLogger(logging.NewNop()))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a request is enqueued", func() {
			q.Enqueue(ctx, queue.Request{Reason: "api"})

			convey.Convey("Then the reloader runs once", func() {
				convey.So(waitCalls(r, 1), convey.ShouldBeTrue)
				convey.So(r.calls.Load(), convey.ShouldEqual, 1)
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When reloads fail", func() {
			r.err = errors.New("csv unreachable")
			q.Enqueue(ctx, queue.Request{Reason: "api"})
			q.Enqueue(ctx, queue.Request{Reason: "api"})

			convey.Convey("Then the worker keeps consuming", func() {
				convey.So(waitCalls(r, 2), convey.ShouldBeTrue)
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When several slow requests are pending", func() {
			r.delay = 20 * time.Millisecond
			for i := 0; i < 3; i++ {
				q.Enqueue(ctx, queue.Request{Reason: "file_changed"})
			}

			convey.Convey("Then reloads never overlap", func() {
				convey.So(waitCalls(r, 3), convey.ShouldBeTrue)
				convey.So(r.overlap.Load(), convey.ShouldBeFalse)
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the queue is closed", func() {
			_ = q.Close()

			convey.Convey("Then Run returns", func() {
				select {
				case <-w.Done():
				case <-time.After(2 * time.Second):
					t.Fatal("worker did not stop")
				}
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})
	})
}

func TestReloadWorkerShutdownTimeout(t *testing.T) {
	convey.Convey("Given a worker that was never started", t, func() {
		w := worker.NewReloadWorker(queue.NewInMemoryQueue(), newMockReloader(), worker.WithLogger(logging.NewNop()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		convey.Convey("Then Shutdown gives up when its context ends", func() {
			convey.So(w.Shutdown(ctx), convey.ShouldNotBeNil)
		})
	})
}

func TestNewReloadWorkerLogger(t *testing.T) {
	convey.Convey("Given a worker built with and without a logger option", t, func() {
		convey.Convey("Then construction never needs the global logger", func() {
			convey.So(func() {
				_ = worker.NewReloadWorker(queue.NewInMemoryQueue(), newMockReloader(), worker.WithLogger(logging.NewNop()))
				_ = worker.NewReloadWorker(queue.NewInMemoryQueue(), newMockReloader(), worker.WithLogger(nil))
				_ = worker.NewReloadWorker(queue.NewInMemoryQueue(), newMockReloader())
			}, convey.ShouldNotPanic)
		})
	})
}
