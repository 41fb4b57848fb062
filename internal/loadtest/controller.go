package loadtest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cuprum-acid/o11y-kit/internal/metrics"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

var (
	// ErrAlreadyRunning is returned by Start while a run is active
	ErrAlreadyRunning = errors.New("load test is already running")

	// ErrNotRunning is returned by Stop when no run is active
	ErrNotRunning = errors.New("load test is not running")

	// ErrInvalidRate is returned for a non-positive or out of range rate
	ErrInvalidRate = errors.New("invalid request rate")

	// ErrClosed is returned by Start once the controller has been closed
	ErrClosed = errors.New("load test controller is closed")
)

// Controller owns the single load test run of the process: its stats,
// its subscribers and the goroutine generating requests.
type Controller struct {
	config      *Config
	client      *http.Client
	stats       *Stats
	registry    *Registry
	broadcaster *Broadcaster
	logger      log.Logger

	// mu serializes Start and Stop and guards the run state below
	mu     sync.Mutex
	active bool
	closed bool
	cancel context.CancelFunc
	done   chan struct{}
}

// NewController creates an idle controller
func NewController(config *Config, logger log.Logger) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	logger = log.With(logger, "component", "loadtest")

	stats := NewStats()
	registry := NewRegistry()

	return &Controller{
		config:      config,
		client:      buildHTTPClient(config),
		stats:       stats,
		registry:    registry,
		broadcaster: NewBroadcaster(stats, registry, config.BroadcastParallelism, logger),
		logger:      logger,
	}, nil
}

// Start begins a run at targetRPS requests per second
func (c *Controller) Start(targetRPS int) error {
	if err := c.config.ValidateRate(targetRPS); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if c.active {
		return ErrAlreadyRunning
	}

	c.stats.Reset(time.Now(), targetRPS)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.active = true
	c.cancel = cancel
	c.done = done

	go func() {
		defer close(done)
		c.run(ctx, targetRPS)
	}()

	metrics.LoadTestActive.Set(1)
	level.Info(c.logger).Log("msg", "Load test started", "target", c.config.TargetURL, "target_rps", targetRPS)

	return nil
}

// Stop cancels the active run and waits until its loop has exited.
// Subscribers receive one final snapshot with the end time set.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stopLocked()
}

func (c *Controller) stopLocked() error {
	if !c.active {
		return ErrNotRunning
	}

	c.active = false
	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil

	c.stats.Finish(time.Now())
	metrics.LoadTestActive.Set(0)
	metrics.LoadTestCurrentRPS.Set(0)

	c.broadcaster.Broadcast()

	snap := c.stats.Snapshot(time.Now())
	level.Info(c.logger).Log(
		"msg", "Load test stopped",
		"total_requests", snap.TotalRequests,
		"successful_requests", snap.SuccessfulRequests,
		"failed_requests", snap.FailedRequests,
	)

	return nil
}

// Close stops an active run, refuses further runs and waits for pending
// broadcasts. Calling it more than once is fine.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	if err := c.stopLocked(); err != nil && !errors.Is(err, ErrNotRunning) {
		level.Warn(c.logger).Log("msg", "Failed to stop load test", "error", err)
	}
	c.mu.Unlock()

	// No run can start any more, so nothing triggers new broadcasts
	c.broadcaster.Wait()
}

// Active reports whether a run is in progress
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Snapshot returns the current stats
func (c *Controller) Snapshot() Snapshot {
	return c.stats.Snapshot(time.Now())
}

// Registry returns the subscriber registry fed by this controller
func (c *Controller) Registry() *Registry {
	return c.registry
}
