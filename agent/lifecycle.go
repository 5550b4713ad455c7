package agent

import (
	"context"
	"sync"
)

// Registry tracks in-flight outbound calls so they can be cancelled as a
// group when the session shuts down.
type Registry struct {
	mu     sync.Mutex
	next   uint64
	active map[uint64]context.CancelFunc
	closed bool
}

func NewRegistry() *Registry {
	return &Registry{active: make(map[uint64]context.CancelFunc)}
}

// Track derives a cancellable context registered with the registry. The
// returned release must be called when the call completes; releasing after
// Shutdown is a no-op. A registry that is already shut down hands back an
// already-cancelled context.
func (r *Registry) Track(ctx context.Context) (context.Context, func()) {
	tracked, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		cancel()
		return tracked, func() {}
	}
	r.next++
	id := r.next
	r.active[id] = cancel
	r.mu.Unlock()

	release := func() {
		r.mu.Lock()
		stored, ok := r.active[id]
		if ok {
			delete(r.active, id)
		}
		r.mu.Unlock()
		if ok {
			stored()
		}
	}
	return tracked, release
}

// Shutdown cancels every tracked call and marks the registry closed.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	cancels := make([]context.CancelFunc, 0, len(r.active))
	for _, cancel := range r.active {
		cancels = append(cancels, cancel)
	}
	r.active = make(map[uint64]context.CancelFunc)
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// InFlight reports the number of tracked calls.
func (r *Registry) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
