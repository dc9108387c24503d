package session

import (
	"sync"
	"sync/atomic"

	"github.com/KirkDiggler/rpg-tabletop/internal/entities"
)

// Registry tracks every live session handled by this process. Each session
// gets a writer lock that serializes its mutations and the last committed
// world state, which readers load without taking the lock.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*liveSession
}

type liveSession struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[entities.WorldState]
	outbox   outbox
}

// outbox runs a session's deliveries one at a time in the order they were
// pushed. A drain goroutine exists only while work is pending.
type outbox struct {
	mu       sync.Mutex
	pending  []func()
	draining bool
}

func (b *outbox) push(deliver func()) {
	b.mu.Lock()
	b.pending = append(b.pending, deliver)
	if b.draining {
		b.mu.Unlock()
		return
	}
	b.draining = true
	b.mu.Unlock()

	go b.drain()
}

func (b *outbox) drain() {
	for {
		b.mu.Lock()
		if len(b.pending) == 0 {
			b.draining = false
			b.mu.Unlock()
			return
		}
		next := b.pending[0]
		b.pending[0] = nil
		b.pending = b.pending[1:]
		b.mu.Unlock()

		next()
	}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*liveSession)}
}

// Snapshot returns the last committed state of a session this process has
// loaded. The returned value must not be modified.
func (r *Registry) Snapshot(sessionID string) (*entities.WorldState, bool) {
	r.mu.Lock()
	live, ok := r.sessions[sessionID]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}

	state := live.snapshot.Load()
	return state, state != nil
}

// Len reports how many sessions are tracked
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Invalidate drops a session's cached state; the next access reloads it
// from storage. The writer lock is kept so in-flight mutations stay
// serialized.
func (r *Registry) Invalidate(sessionID string) {
	r.mu.Lock()
	live, ok := r.sessions[sessionID]
	r.mu.Unlock()
	if ok {
		live.snapshot.Store(nil)
	}
}

func (r *Registry) get(sessionID string) *liveSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	live, ok := r.sessions[sessionID]
	if !ok {
		live = &liveSession{}
		r.sessions[sessionID] = live
	}
	return live
}
