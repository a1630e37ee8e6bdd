package rtp

import (
	"fmt"
	"sync"

	"github.com/pion/rtp"
)

// rtpVersion is the only RTP version on the wire today (RFC 3550)
const rtpVersion = 2

// Info summarizes the header of a datagram recognized as RTP
type Info struct {
	SSRC           uint32
	SequenceNumber uint16
	Timestamp      uint32
	PayloadType    uint8
	Marker         bool
	PayloadSize    int
}

// String renders the header the way the UDP server logs it
func (i Info) String() string {
	return fmt.Sprintf("ssrc=%d seq=%d ts=%d pt=%d marker=%t payload=%dB",
		i.SSRC, i.SequenceNumber, i.Timestamp, i.PayloadType, i.Marker, i.PayloadSize)
}

// Inspect reports whether data parses as an RTP v2 packet. Plain text
// payloads fail either the header length or the version check.
func Inspect(data []byte) (Info, bool) {
	packet := &rtp.Packet{}
	if err := packet.Unmarshal(data); err != nil {
		return Info{}, false
	}
	if packet.Version != rtpVersion {
		return Info{}, false
	}

	return Info{
		SSRC:           packet.SSRC,
		SequenceNumber: packet.SequenceNumber,
		Timestamp:      packet.Timestamp,
		PayloadType:    packet.PayloadType,
		Marker:         packet.Marker,
		PayloadSize:    len(packet.Payload),
	}, true
}

// StreamTracker keeps one SequenceTracker per SSRC seen by a server
type StreamTracker struct {
	streams map[uint32]*SequenceTracker
	mu      sync.Mutex
}

// NewStreamTracker creates an empty StreamTracker
func NewStreamTracker() *StreamTracker {
	return &StreamTracker{
		streams: make(map[uint32]*SequenceTracker),
	}
}

// Track records the packet's sequence number against its stream and
// returns the number of packets newly detected as missing.
func (s *StreamTracker) Track(info Info) uint32 {
	s.mu.Lock()
	tracker, ok := s.streams[info.SSRC]
	if !ok {
		tracker = NewSequenceTracker()
		s.streams[info.SSRC] = tracker
	}
	s.mu.Unlock()

	return tracker.TrackIncoming(info.SequenceNumber)
}

// Streams returns the number of distinct SSRCs seen
func (s *StreamTracker) Streams() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.streams)
}

// Dropped returns the total missing packets across all streams
func (s *StreamTracker) Dropped() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total uint32
	for _, tracker := range s.streams {
		_, dropped, _ := tracker.GetStats()
		total += dropped
	}
	return total
}
