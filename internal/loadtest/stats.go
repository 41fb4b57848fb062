package loadtest

import (
	"sync"
	"time"
)

// Stats holds the counters of the current (or last) load test run.
// All access goes through its methods; the request counters are updated
// together so TotalRequests always equals SuccessfulRequests + FailedRequests.
type Stats struct {
	mu sync.RWMutex

	startTime  *time.Time
	endTime    *time.Time
	total      uint64
	successful uint64
	failed     uint64
	currentRPS float64
	targetRPS  int
	active     bool

	// seq increments on every mutation and is never reset, so snapshots
	// taken across runs stay ordered.
	seq uint64
}

// Snapshot is a read-only copy of Stats plus the derived run duration.
type Snapshot struct {
	StartTime          *time.Time `json:"start_time" yaml:"start_time"`
	EndTime            *time.Time `json:"end_time" yaml:"end_time"`
	TotalRequests      uint64     `json:"total_requests" yaml:"total_requests"`
	SuccessfulRequests uint64     `json:"successful_requests" yaml:"successful_requests"`
	FailedRequests     uint64     `json:"failed_requests" yaml:"failed_requests"`
	CurrentRPS         float64    `json:"current_rps" yaml:"current_rps"`
	Duration           float64    `json:"duration" yaml:"duration"` // Seconds since StartTime
	Active             bool       `json:"active" yaml:"active"`
	TargetRPS          int        `json:"target_rps" yaml:"target_rps"`

	Seq uint64 `json:"-" yaml:"-"`
}

// NewStats creates an idle Stats record
func NewStats() *Stats {
	return &Stats{}
}

// Reset zeroes all counters and marks a new run as started at now
func (s *Stats) Reset(now time.Time, targetRPS int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := now
	s.startTime = &start
	s.endTime = nil
	s.total = 0
	s.successful = 0
	s.failed = 0
	s.currentRPS = 0
	s.targetRPS = targetRPS
	s.active = true
	s.seq++
}

// Record adds the outcome of one request
func (s *Stats) Record(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if success {
		s.successful++
	} else {
		s.failed++
	}
	s.total++
	s.seq++
}

// SetCurrentRPS stores the latest windowed rate estimate
func (s *Stats) SetCurrentRPS(rps float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentRPS = rps
	s.seq++
}

// Finish marks the run as stopped at now
func (s *Stats) Finish(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	end := now
	s.endTime = &end
	s.active = false
	s.seq++
}

// Snapshot returns a consistent copy of the record with the duration
// computed against now
func (s *Stats) Snapshot(now time.Time) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		TotalRequests:      s.total,
		SuccessfulRequests: s.successful,
		FailedRequests:     s.failed,
		CurrentRPS:         s.currentRPS,
		Active:             s.active,
		TargetRPS:          s.targetRPS,
		Seq:                s.seq,
	}

	if s.startTime != nil {
		start := *s.startTime
		snap.StartTime = &start
		snap.Duration = now.Sub(start).Seconds()
	}
	if s.endTime != nil {
		end := *s.endTime
		snap.EndTime = &end
	}

	return snap
}

// SuccessRate returns the success rate as a percentage
func (s Snapshot) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.SuccessfulRequests) / float64(s.TotalRequests) * 100
}

// ErrorRate returns the failure rate as a percentage
func (s Snapshot) ErrorRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.FailedRequests) / float64(s.TotalRequests) * 100
}
