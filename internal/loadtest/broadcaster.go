package loadtest

import (
	"sync"
	"time"

	"github.com/cuprum-acid/o11y-kit/internal/metrics"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"
)

// DefaultBroadcastParallelism bounds concurrent pushes per broadcast
const DefaultBroadcastParallelism = 16

// Broadcaster pushes stats snapshots to every registered subscriber.
// A failing subscriber is removed from the registry; it never affects
// delivery to the others and never surfaces to the caller.
type Broadcaster struct {
	stats       *Stats
	registry    *Registry
	logger      log.Logger
	parallelism int
	now         func() time.Time

	pending sync.WaitGroup
}

// NewBroadcaster creates a broadcaster reading from stats and pushing to registry
func NewBroadcaster(stats *Stats, registry *Registry, parallelism int, logger log.Logger) *Broadcaster {
	if parallelism <= 0 {
		parallelism = DefaultBroadcastParallelism
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return &Broadcaster{
		stats:       stats,
		registry:    registry,
		logger:      logger,
		parallelism: parallelism,
		now:         time.Now,
	}
}

// Broadcast pushes the current snapshot to all subscribers and returns
// once every push has been attempted
func (b *Broadcaster) Broadcast() {
	subs := b.registry.Members()
	if len(subs) == 0 {
		return
	}

	snap := b.stats.Snapshot(b.now())

	var g errgroup.Group
	g.SetLimit(b.parallelism)

	for _, sub := range subs {
		g.Go(func() error {
			if err := sub.Push(snap); err != nil {
				b.registry.Leave(sub)
				metrics.LoadTestBroadcastFailures.Inc()
				level.Debug(b.logger).Log("msg", "Dropped stats subscriber", "subscriber", sub.ID(), "error", err)
			}
			return nil
		})
	}

	_ = g.Wait()
}

// Trigger starts a broadcast without waiting for it
func (b *Broadcaster) Trigger() {
	b.pending.Add(1)
	go func() {
		defer b.pending.Done()
		b.Broadcast()
	}()
}

// Wait blocks until all triggered broadcasts have finished
func (b *Broadcaster) Wait() {
	b.pending.Wait()
}
