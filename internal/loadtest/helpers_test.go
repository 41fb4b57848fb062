package loadtest

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var errSubscriberGone = errors.New("subscriber gone")

// recordingSubscriber keeps every snapshot pushed to it
type recordingSubscriber struct {
	id string

	mu    sync.Mutex
	snaps []Snapshot
}

func newRecordingSubscriber(id string) *recordingSubscriber {
	return &recordingSubscriber{id: id}
}

func (s *recordingSubscriber) ID() string { return s.id }

func (s *recordingSubscriber) Push(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
	return nil
}

func (s *recordingSubscriber) Snapshots() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Snapshot, len(s.snaps))
	copy(out, s.snaps)
	return out
}

func (s *recordingSubscriber) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snaps)
}

// Last returns the newest snapshot by sequence number. Triggered pushes
// run concurrently, so arrival order is not snapshot order.
func (s *recordingSubscriber) Last() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snaps) == 0 {
		return Snapshot{}, false
	}

	last := s.snaps[0]
	for _, snap := range s.snaps[1:] {
		if snap.Seq > last.Seq {
			last = snap
		}
	}
	return last, true
}

// failingSubscriber fails every push after the first failAfter pushes
type failingSubscriber struct {
	id        string
	failAfter int32
	pushes    atomic.Int32
}

func (s *failingSubscriber) ID() string { return s.id }

func (s *failingSubscriber) Push(Snapshot) error {
	n := s.pushes.Add(1)
	if n > s.failAfter {
		return fmt.Errorf("push %d: %w", n, errSubscriberGone)
	}
	return nil
}
