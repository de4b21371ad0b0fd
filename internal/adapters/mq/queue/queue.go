// Package queue carries dataset reload requests to the reload worker.
//
// The queue is bounded and never blocks the producer. With the default
// capacity of one, a burst of requests collapses into a single pending
// reload.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/speciesdex/pkg/metrics"
)

const defaultCapacity = 1

// Request asks for the dataset to be reloaded.
type Request struct {
	// Reason names the trigger, e.g. "startup", "file_changed", "api".
	Reason string
	At     time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a request. It returns false when the queue is closed or a
	// request is already pending.
	Enqueue(ctx context.Context, r Request) bool

	// Dequeue returns a channel of pending requests. It is closed when the
	// queue is closed or ctx is done.
	Dequeue(ctx context.Context) <-chan Request

	Len(ctx context.Context) int

	// Close stops accepting requests and closes the dequeue channel.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	requests chan Request
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.requests = make(chan Request, q.capacity)
	metrics.UpdateReloadQueueSize(0)
	return q
}

// Enqueue adds r unless the queue is full or closed.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Request) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	select {
	case q.requests <- r:
		metrics.UpdateReloadQueueSize(len(q.requests))
		return true
	case <-ctx.Done():
		return false
	default:
		return false
	}
}

// Dequeue returns a channel that receives requests as they arrive.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Request {
	out := make(chan Request)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case r, ok := <-q.requests:
				if !ok {
					return
				}
				metrics.UpdateReloadQueueSize(len(q.requests))
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the number of pending requests.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.requests)
}

// Close shuts the queue. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.requests)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
