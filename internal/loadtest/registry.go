package loadtest

import (
	"sync"

	"github.com/cuprum-acid/o11y-kit/internal/metrics"
)

// Subscriber is a live stream that wants stats pushed to it.
// Push must not block for long: slow subscribers are expected to
// buffer or drop snapshots themselves.
type Subscriber interface {
	ID() string
	Push(snap Snapshot) error
}

// Registry tracks the set of live subscribers. It does not own the
// underlying connections, it only tracks membership for fan-out.
type Registry struct {
	mu      sync.RWMutex
	members map[Subscriber]struct{}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		members: make(map[Subscriber]struct{}),
	}
}

// Join adds a subscriber
func (r *Registry) Join(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.members[sub] = struct{}{}
	metrics.LoadTestSubscribers.Set(float64(len(r.members)))
}

// Leave removes a subscriber. Removing an absent subscriber is a no-op.
func (r *Registry) Leave(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.members, sub)
	metrics.LoadTestSubscribers.Set(float64(len(r.members)))
}

// Members returns a copy of the current membership
func (r *Registry) Members() []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]Subscriber, 0, len(r.members))
	for sub := range r.members {
		subs = append(subs, sub)
	}
	return subs
}

// Len returns the number of subscribers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}
