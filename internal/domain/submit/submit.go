// Package submit guards form submissions against being processed twice.
package submit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Guard tracks form tokens that have been submitted.
type Guard interface {
	// Begin records token and reports whether it was already recorded.
	// A true result means the submission must be rejected.
	Begin(ctx context.Context, token string) bool

	// Release forgets token so a failed submission can be retried.
	Release(ctx context.Context, token string)

	Size() int64
}

// memoryGuard keeps tokens in a map. When bounded, the oldest token is
// evicted once maxSize is reached.
type memoryGuard struct {
	mu      sync.Mutex
	seen    map[string]uint64
	order   []entry // insertion order, may hold released tokens
	seq     uint64
	maxSize int
	size    atomic.Int64
}

type entry struct {
	token string
	seq   uint64
}

// NewGuard creates an in-memory Guard.
func NewGuard(opts ...Option) Guard {
	g := &memoryGuard{maxSize: 10000}
	for _, opt := range opts {
		opt(g)
	}
	g.seen = make(map[string]uint64)
	return g
}

func (g *memoryGuard) Begin(_ context.Context, token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[token]; ok {
		return true
	}
	if g.maxSize > 0 {
		for len(g.seen) >= g.maxSize {
			g.evictOldest()
		}
	}
	g.seq++
	g.seen[token] = g.seq
	if g.maxSize > 0 {
		g.order = append(g.order, entry{token: token, seq: g.seq})
		g.compact()
	}
	g.size.Add(1)
	return false
}

func (g *memoryGuard) Release(_ context.Context, token string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[token]; ok {
		delete(g.seen, token)
		g.size.Add(-1)
	}
}

// evictOldest drops the oldest live token. Stale entries left by Release
// are skipped. Must be called with g.mu held.
func (g *memoryGuard) evictOldest() {
	for len(g.order) > 0 {
		e := g.order[0]
		g.order[0] = entry{}
		g.order = g.order[1:]
		if g.live(e) {
			delete(g.seen, e.token)
			g.size.Add(-1)
			return
		}
	}
}

// compact drops stale entries once they outnumber live ones.
func (g *memoryGuard) compact() {
	if len(g.order) <= 2*len(g.seen) {
		return
	}
	live := make([]entry, 0, len(g.seen))
	for _, e := range g.order {
		if g.live(e) {
			live = append(live, e)
		}
	}
	g.order = live
}

func (g *memoryGuard) live(e entry) bool {
	seq, ok := g.seen[e.token]
	return ok && seq == e.seq
}

func (g *memoryGuard) Size() int64 {
	return g.size.Load()
}
