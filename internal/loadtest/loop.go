package loadtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cuprum-acid/o11y-kit/internal/metrics"
	"github.com/go-kit/log/level"
)

// maxDrainBytes is how much of a response body is read back so the
// connection can be reused
const maxDrainBytes = 1 << 20

// run is the request loop of one load test. It issues one request per
// tick, paced to targetRPS by sleeping what is left of the interval after
// the request. A slow target lowers the achieved rate instead of queueing
// catch-up requests. The loop ends only when ctx is cancelled.
func (c *Controller) run(ctx context.Context, targetRPS int) {
	interval := time.Second / time.Duration(targetRPS)
	window := newRateWindow(time.Now())

	timer := time.NewTimer(interval)
	timer.Stop()

	defer c.broadcaster.Broadcast()

	for ctx.Err() == nil {
		tickStart := time.Now()

		success, err := c.probe(ctx)
		if ctx.Err() != nil {
			// Cancelled mid-request; the request is not counted
			return
		}

		c.stats.Record(success)
		if success {
			metrics.LoadTestRequests.WithLabelValues(metrics.OutcomeSuccess).Inc()
		} else {
			metrics.LoadTestRequests.WithLabelValues(metrics.OutcomeFailure).Inc()
			level.Debug(c.logger).Log("msg", "Load test request failed", "target", c.config.TargetURL, "error", err)
		}

		tick := window.observe(time.Now())
		if tick.recompute {
			c.stats.SetCurrentRPS(tick.rps)
			metrics.LoadTestCurrentRPS.Set(tick.rps)
			c.broadcaster.Trigger()
		}
		if tick.halfPush {
			c.broadcaster.Trigger()
		}

		wait := interval - time.Since(tickStart)
		if wait <= 0 {
			continue
		}

		timer.Reset(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// probe issues one GET against the target. Any failure, including a
// panic inside the HTTP stack, is reported as an unsuccessful request.
func (c *Controller) probe(ctx context.Context) (success bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			success = false
			err = fmt.Errorf("request panicked: %v", r)
		}
	}()

	reqCtx, cancel := context.WithTimeout(ctx, c.config.GetRequestTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.config.TargetURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return false, fmt.Errorf("request timed out after %s: %w", c.config.GetRequestTimeout(), err)
		}
		return false, err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return true, nil
}
