package simulation

import (
	"sync"
	"time"
)

// TickMetricsSnapshot summarises observed turn durations and output sizes.
type TickMetricsSnapshot struct {
	Samples        int
	Average        time.Duration
	Max            time.Duration
	Last           time.Duration
	LastUpdates    int
	MaxUpdates     int
	LastExecutions int
}

// AverageTPS derives the ticks-per-second equivalent of the sampled tick duration.
func (s TickMetricsSnapshot) AverageTPS() float64 {
	if s.Average <= 0 {
		return 0
	}
	return float64(time.Second) / float64(s.Average)
}

// TickMonitor accumulates timing statistics for the turn loop.
type TickMonitor struct {
	mu             sync.Mutex
	samples        int
	total          time.Duration
	max            time.Duration
	last           time.Duration
	lastUpdates    int
	maxUpdates     int
	lastExecutions int
}

// NewTickMonitor constructs an empty monitor ready to collect samples.
func NewTickMonitor() *TickMonitor {
	return &TickMonitor{}
}

// Observe records one completed tick: its duration, the number of updates it emitted
// and the executions left afterwards.
func (m *TickMonitor) Observe(duration time.Duration, updates, executions int) {
	if m == nil || duration <= 0 {
		return
	}
	m.mu.Lock()
	m.samples++
	m.total += duration
	//1.- Track the worst case so operators can spot spikes quickly.
	if duration > m.max {
		m.max = duration
	}
	if updates > m.maxUpdates {
		m.maxUpdates = updates
	}
	m.last = duration
	m.lastUpdates = updates
	m.lastExecutions = executions
	m.mu.Unlock()
}

// Snapshot returns a copy of the aggregated tick statistics.
func (m *TickMonitor) Snapshot() TickMetricsSnapshot {
	if m == nil {
		return TickMetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := TickMetricsSnapshot{
		Samples:        m.samples,
		Max:            m.max,
		Last:           m.last,
		LastUpdates:    m.lastUpdates,
		MaxUpdates:     m.maxUpdates,
		LastExecutions: m.lastExecutions,
	}
	if m.samples > 0 {
		snapshot.Average = m.total / time.Duration(m.samples)
	}
	return snapshot
}

// Reset clears the accumulated statistics so a fresh game can begin cleanly.
func (m *TickMonitor) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.samples, m.total, m.max, m.last = 0, 0, 0, 0
	m.lastUpdates, m.maxUpdates, m.lastExecutions = 0, 0, 0
	m.mu.Unlock()
}
