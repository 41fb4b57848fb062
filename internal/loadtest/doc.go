/*
Package loadtest provides the self-directed load generator of the service.

# Overview

A Controller owns at most one run at a time. A run is a goroutine that
issues HTTP GET requests against a fixed target at a requested rate,
records the outcome of every request and streams the running statistics
to any number of subscribers.

# Architecture

The package consists of five parts:

 1. Stats (stats.go): counters of the current run behind one lock
 2. Registry (registry.go): the set of live subscribers
 3. Broadcaster (broadcaster.go): snapshot fan-out to the registry
 4. Request loop (loop.go, window.go): pacing, probing, rate estimation
 5. Controller (controller.go): start/stop over the loop

# Pacing

The loop sleeps what is left of 1/rps after each request. There is no
burst compensation: when requests take longer than the interval the loop
simply runs at the rate it can achieve.

# Pushes

Subscribers get a snapshot:
  - every time the one second rate window closes (current_rps recomputed)
  - once per window when half of it has elapsed
  - when the loop exits and once more after Stop records the end time

Pushes triggered by the loop are fire-and-forget so a slow subscriber
never skews pacing. Snapshots carry a sequence number so a subscriber can
drop a snapshot older than one it already delivered.

# Example Usage

	ctrl, err := NewController(&Config{
		TargetURL:      "http://localhost:8000/items",
		RequestTimeout: 5 * time.Second,
	}, logger)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	ctrl.Registry().Join(subscriber)

	if err := ctrl.Start(10); err != nil {
		return err
	}
	time.Sleep(5 * time.Second)
	if err := ctrl.Stop(); err != nil {
		return err
	}

	snap := ctrl.Snapshot()
	fmt.Printf("Completed %d requests (%d failed)\n", snap.TotalRequests, snap.FailedRequests)

# Thread Safety

All exported methods are safe for concurrent use. Start and Stop are
serialized; Stop returns only after the loop goroutine has exited, so a
following Start can never overlap a previous run.
*/
package loadtest
