package loadtest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_IdleSnapshot(t *testing.T) {
	stats := NewStats()

	snap := stats.Snapshot(time.Now())

	assert.Nil(t, snap.StartTime)
	assert.Nil(t, snap.EndTime)
	assert.Zero(t, snap.TotalRequests)
	assert.Zero(t, snap.Duration)
	assert.False(t, snap.Active)
}

func TestStats_ResetClearsPreviousRun(t *testing.T) {
	stats := NewStats()
	start := time.Now()

	stats.Reset(start, 5)
	stats.Record(true)
	stats.Record(false)
	stats.SetCurrentRPS(2)
	stats.Finish(start.Add(time.Second))

	second := start.Add(10 * time.Second)
	stats.Reset(second, 20)

	snap := stats.Snapshot(second.Add(1500 * time.Millisecond))
	require.NotNil(t, snap.StartTime)
	assert.True(t, snap.StartTime.Equal(second))
	assert.Nil(t, snap.EndTime)
	assert.Zero(t, snap.TotalRequests)
	assert.Zero(t, snap.SuccessfulRequests)
	assert.Zero(t, snap.FailedRequests)
	assert.Zero(t, snap.CurrentRPS)
	assert.Equal(t, 20, snap.TargetRPS)
	assert.True(t, snap.Active)
	assert.InDelta(t, 1.5, snap.Duration, 1e-9)
}

func TestStats_FinishKeepsCounters(t *testing.T) {
	stats := NewStats()
	start := time.Now()

	stats.Reset(start, 1)
	stats.Record(true)
	stats.Finish(start.Add(2 * time.Second))

	snap := stats.Snapshot(start.Add(3 * time.Second))
	require.NotNil(t, snap.EndTime)
	assert.True(t, snap.EndTime.Equal(start.Add(2*time.Second)))
	assert.False(t, snap.Active)
	assert.Equal(t, uint64(1), snap.TotalRequests)
	assert.Equal(t, uint64(1), snap.SuccessfulRequests)
}

func TestStats_CounterInvariantUnderConcurrency(t *testing.T) {
	stats := NewStats()
	stats.Reset(time.Now(), 100)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Readers check the invariant while writers update
	violations := make(chan Snapshot, 1)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := stats.Snapshot(time.Now())
				if snap.TotalRequests != snap.SuccessfulRequests+snap.FailedRequests {
					select {
					case violations <- snap:
					default:
					}
					return
				}
			}
		}()
	}

	var writers sync.WaitGroup
	for i := 0; i < 8; i++ {
		writers.Add(1)
		go func(success bool) {
			defer writers.Done()
			for j := 0; j < 500; j++ {
				stats.Record(success)
			}
		}(i%2 == 0)
	}
	writers.Wait()
	close(stop)
	wg.Wait()

	select {
	case snap := <-violations:
		t.Fatalf("Invariant violated: total=%d successful=%d failed=%d",
			snap.TotalRequests, snap.SuccessfulRequests, snap.FailedRequests)
	default:
	}

	snap := stats.Snapshot(time.Now())
	assert.Equal(t, uint64(4000), snap.TotalRequests)
	assert.Equal(t, uint64(2000), snap.SuccessfulRequests)
	assert.Equal(t, uint64(2000), snap.FailedRequests)
}

func TestStats_SeqNeverDecreases(t *testing.T) {
	stats := NewStats()
	now := time.Now()

	var last uint64
	steps := []func(){
		func() { stats.Reset(now, 1) },
		func() { stats.Record(true) },
		func() { stats.SetCurrentRPS(1) },
		func() { stats.Finish(now) },
		func() { stats.Reset(now, 2) },
		func() { stats.Record(false) },
	}

	for i, step := range steps {
		step()
		seq := stats.Snapshot(now).Seq
		assert.Greater(t, seq, last, "step %d", i)
		last = seq
	}
}

func TestSnapshot_Rates(t *testing.T) {
	snap := Snapshot{TotalRequests: 4, SuccessfulRequests: 3, FailedRequests: 1}

	assert.InDelta(t, 75.0, snap.SuccessRate(), 1e-9)
	assert.InDelta(t, 25.0, snap.ErrorRate(), 1e-9)
	assert.Zero(t, Snapshot{}.SuccessRate())
	assert.Zero(t, Snapshot{}.ErrorRate())
}
