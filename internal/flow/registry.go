package flow

import (
	"context"
	"sync"
	"time"

	"github.com/brightstay/stayflow/internal/clock"
	"github.com/brightstay/stayflow/pkg/logger"
)

// Closer is the teardown hook every flow kind provides. Eviction and
// abandonment both go through it so countdown goroutines never leak.
type Closer interface {
	Close()
}

type entry[T Closer] struct {
	flow      T
	expiresAt time.Time
}

// Registry holds live flow instances keyed by id, with a sliding TTL.
// Expired entries are closed lazily on access and by the sweeper.
type Registry[T Closer] struct {
	mu      sync.Mutex
	clock   clock.Clock
	ttl     time.Duration
	entries map[string]entry[T]
}

func NewRegistry[T Closer](clk clock.Clock, ttl time.Duration) *Registry[T] {
	return &Registry[T]{
		clock:   clk,
		ttl:     ttl,
		entries: make(map[string]entry[T]),
	}
}

func (r *Registry[T]) Put(id string, f T) {
	r.mu.Lock()
	r.entries[id] = entry[T]{flow: f, expiresAt: r.clock.Now().Add(r.ttl)}
	r.mu.Unlock()
}

// Get returns the flow and extends its lease. An expired entry is closed and
// reported as absent.
func (r *Registry[T]) Get(id string) (T, bool) {
	var zero T

	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return zero, false
	}
	if r.clock.Now().After(e.expiresAt) {
		delete(r.entries, id)
		r.mu.Unlock()
		e.flow.Close()
		return zero, false
	}
	e.expiresAt = r.clock.Now().Add(r.ttl)
	r.entries[id] = e
	r.mu.Unlock()

	return e.flow, true
}

// Remove closes and drops the flow.
func (r *Registry[T]) Remove(id string) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if ok {
		e.flow.Close()
	}
	return ok
}

func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep closes every expired entry once.
func (r *Registry[T]) Sweep() int {
	now := r.clock.Now()

	r.mu.Lock()
	var expired []T
	for id, e := range r.entries {
		if now.After(e.expiresAt) {
			expired = append(expired, e.flow)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, f := range expired {
		f.Close()
	}
	return len(expired)
}

// StartSweeper runs Sweep on an interval until ctx is done.
func (r *Registry[T]) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Sweep(); n > 0 {
					logger.Debug("Evicted expired flows", "count", n)
				}
			}
		}
	}()
}
