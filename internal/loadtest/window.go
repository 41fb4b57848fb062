package loadtest

import "time"

const (
	// rateWindow recomputes current_rps once per window and asks for a
	// push twice per window.
	rateWindowLength = time.Second
	pushHalfWindow   = rateWindowLength / 2
)

// rateWindow is the rolling per-second request counter of one run
type rateWindow struct {
	start      time.Time
	count      int
	halfPushed bool
}

// windowTick is what one observation asks the loop to do
type windowTick struct {
	rps       float64
	recompute bool // publish rps and push
	halfPush  bool // push on the 2 Hz cadence
}

func newRateWindow(now time.Time) *rateWindow {
	return &rateWindow{start: now}
}

// observe counts one request completed at now
func (w *rateWindow) observe(now time.Time) windowTick {
	w.count++
	elapsed := now.Sub(w.start)

	var tick windowTick

	// The half cadence fires at most once per window. At the window
	// boundary both cadences may fire in the same observation.
	if elapsed >= pushHalfWindow && !w.halfPushed {
		tick.halfPush = true
		w.halfPushed = true
	}

	if elapsed >= rateWindowLength {
		tick.rps = float64(w.count) / elapsed.Seconds()
		tick.recompute = true
		w.count = 0
		w.start = now
		w.halfPushed = false
	}

	return tick
}
