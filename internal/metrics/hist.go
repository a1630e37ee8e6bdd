package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// maxServiceSamples caps the service-time samples kept per peer
const maxServiceSamples = 10000

// Metrics provides per-peer interaction statistics for a server
type Metrics struct {
	// Peer metrics
	peerMetrics sync.Map // peer host -> *PeerMetrics

	// Global counters
	totalInteractions int64
	mu                sync.RWMutex // Mutex for global counters
}

// PeerStats is a snapshot of the counters for a single remote host
type PeerStats struct {
	Peer          string    `json:"peer"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	Interactions  int64     `json:"interactions"`
	BytesReceived int64     `json:"bytes_received"`
	RepliesSent   int64     `json:"replies_sent"`
	EmptyReads    int64     `json:"empty_reads"`
	Failures      int64     `json:"failures"`
	ServiceTimes  []float64 `json:"service_times_ms"`
}

// PeerMetrics stores metrics for a single remote host
type PeerMetrics struct {
	PeerStats

	mu sync.RWMutex
}

// Stats provides aggregated statistics across all peers
type Stats struct {
	Peers          int       `json:"peers"`
	Interactions   int64     `json:"interactions"`
	BytesReceived  int64     `json:"bytes_received"`
	RepliesSent    int64     `json:"replies_sent"`
	EmptyReads     int64     `json:"empty_reads"`
	Failures       int64     `json:"failures"`
	P50ServiceTime float64   `json:"p50_service_time_ms"`
	P95ServiceTime float64   `json:"p95_service_time_ms"`
	P99ServiceTime float64   `json:"p99_service_time_ms"`
	MaxServiceTime float64   `json:"max_service_time_ms"`
	AvgServiceTime float64   `json:"avg_service_time_ms"`
	Timestamp      time.Time `json:"timestamp"`
}

// Interaction describes one served connection or datagram
type Interaction struct {
	Peer          string
	BytesReceived int
	Replied       bool
	Failed        bool
	ServiceTime   time.Duration
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) peer(peer string) *PeerMetrics {
	now := time.Now()
	v, _ := m.peerMetrics.LoadOrStore(peer, &PeerMetrics{PeerStats: PeerStats{
		Peer:         peer,
		FirstSeen:    now,
		ServiceTimes: make([]float64, 0, 16),
	}})
	return v.(*PeerMetrics)
}

// Record adds one interaction to the peer's counters
func (m *Metrics) Record(in Interaction) {
	pm := m.peer(in.Peer)

	pm.mu.Lock()
	pm.LastSeen = time.Now()
	pm.Interactions++
	pm.BytesReceived += int64(in.BytesReceived)
	if in.Replied {
		pm.RepliesSent++
	}
	if in.BytesReceived == 0 && !in.Failed {
		pm.EmptyReads++
	}
	if in.Failed {
		pm.Failures++
	}
	pm.ServiceTimes = append(pm.ServiceTimes, float64(in.ServiceTime)/float64(time.Millisecond))

	// Limit buffer size
	if len(pm.ServiceTimes) > maxServiceSamples {
		// Create a new slice to allow old memory to be garbage collected
		pm.ServiceTimes = append([]float64(nil), pm.ServiceTimes[maxServiceSamples/10:]...)
	}
	pm.mu.Unlock()

	m.mu.Lock()
	m.totalInteractions++
	m.mu.Unlock()
}

// Peer returns a snapshot of the counters for one peer
func (m *Metrics) Peer(peer string) (PeerStats, bool) {
	v, ok := m.peerMetrics.Load(peer)
	if !ok {
		return PeerStats{}, false
	}
	pm := v.(*PeerMetrics)

	pm.mu.RLock()
	defer pm.mu.RUnlock()

	snapshot := pm.PeerStats
	snapshot.ServiceTimes = append([]float64(nil), pm.ServiceTimes...)
	return snapshot, true
}

// GetStats calculates statistics across all peers
func (m *Metrics) GetStats() *Stats {
	stats := &Stats{Timestamp: time.Now()}
	samples := make([]float64, 0)

	m.peerMetrics.Range(func(_, value interface{}) bool {
		if pm, ok := value.(*PeerMetrics); ok {
			pm.mu.RLock()
			stats.Peers++
			stats.BytesReceived += pm.BytesReceived
			stats.RepliesSent += pm.RepliesSent
			stats.EmptyReads += pm.EmptyReads
			stats.Failures += pm.Failures
			samples = append(samples, pm.ServiceTimes...)
			pm.mu.RUnlock()
		}
		return true
	})

	m.mu.RLock()
	stats.Interactions = m.totalInteractions
	m.mu.RUnlock()

	if len(samples) > 0 {
		sort.Float64s(samples)

		n := len(samples)
		stats.P50ServiceTime = samples[int(float64(n)*0.5)]
		stats.P95ServiceTime = samples[int(math.Min(float64(n)*0.95, float64(n-1)))]
		stats.P99ServiceTime = samples[int(math.Min(float64(n)*0.99, float64(n-1)))]
		stats.MaxServiceTime = samples[n-1]

		sum := 0.0
		for _, s := range samples {
			sum += s
		}
		stats.AvgServiceTime = sum / float64(n)
	}

	return stats
}
