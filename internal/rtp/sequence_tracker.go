package rtp

import (
	"sync"
)

// SequenceTracker tracks incoming sequence numbers of one RTP stream
// for packet loss detection
type SequenceTracker struct {
	lastIncomingSeq uint16
	started         bool
	incomingCount   uint32
	droppedCount    uint32
	reorderedCount  uint32
	mu              sync.RWMutex
}

// NewSequenceTracker creates a new SequenceTracker
func NewSequenceTracker() *SequenceTracker {
	return &SequenceTracker{}
}

// TrackIncoming tracks an incoming sequence number and returns the
// number of packets newly detected as dropped. Sequence numbers behind
// the last one seen count as reordered and do not move the window.
func (s *SequenceTracker) TrackIncoming(seq uint16) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.incomingCount++

	if !s.started {
		s.started = true
		s.lastIncomingSeq = seq
		return 0
	}

	// uint16 arithmetic handles wraparound
	gap := seq - s.lastIncomingSeq
	switch {
	case gap == 0 || gap >= 0x8000:
		s.reorderedCount++
		return 0
	case gap == 1:
		s.lastIncomingSeq = seq
		return 0
	default:
		dropped := uint32(gap) - 1
		s.droppedCount += dropped
		s.lastIncomingSeq = seq
		return dropped
	}
}

// GetStats returns tracking statistics
func (s *SequenceTracker) GetStats() (incoming, dropped, reordered uint32) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.incomingCount, s.droppedCount, s.reorderedCount
}
