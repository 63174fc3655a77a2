package dispatcher

import (
	"sort"
	"sync"
	"time"

	"github.com/dshills/keystate/internal/dispatcher/hook"
)

// Metrics collects dispatch statistics.
type Metrics struct {
	mu sync.RWMutex

	// Per-type metrics
	typeMetrics map[string]*TypeMetrics

	// Global counters
	totalDispatches uint64
	totalChanges    uint64
	totalNoOps      uint64
	totalCancelled  uint64
	totalErrors     uint64
	totalPanics     uint64

	// Timing
	totalDuration time.Duration
}

// TypeMetrics holds metrics for a single action type.
type TypeMetrics struct {
	Type          string
	DispatchCount uint64
	ChangeCount   uint64
	ErrorCount    uint64
	PanicCount    uint64
	TotalDuration time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	LastStatus    hook.Status
	LastDispatch  time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		typeMetrics: make(map[string]*TypeMetrics),
	}
}

func (m *Metrics) entry(msgType string, duration time.Duration) *TypeMetrics {
	tm := m.typeMetrics[msgType]
	if tm == nil {
		tm = &TypeMetrics{
			Type:        msgType,
			MinDuration: duration,
			MaxDuration: duration,
		}
		m.typeMetrics[msgType] = tm
	}
	return tm
}

// RecordDispatch records one reduction pass.
func (m *Metrics) RecordDispatch(msgType string, duration time.Duration, status hook.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalDispatches++
	m.totalDuration += duration

	tm := m.entry(msgType, duration)
	tm.DispatchCount++
	tm.TotalDuration += duration
	tm.LastStatus = status
	tm.LastDispatch = time.Now()

	if duration < tm.MinDuration {
		tm.MinDuration = duration
	}
	if duration > tm.MaxDuration {
		tm.MaxDuration = duration
	}

	switch status {
	case hook.StatusOK:
		m.totalChanges++
		tm.ChangeCount++
	case hook.StatusNoOp:
		m.totalNoOps++
	case hook.StatusCancelled:
		m.totalCancelled++
	case hook.StatusError:
		m.totalErrors++
		tm.ErrorCount++
	}
}

// RecordPanic records a recovered reducer panic. The pass itself is
// recorded separately by RecordDispatch.
func (m *Metrics) RecordPanic(msgType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalPanics++
	m.entry(msgType, 0).PanicCount++
}

// TotalDispatches returns the total number of reduction passes.
func (m *Metrics) TotalDispatches() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalDispatches
}

// TotalChanges returns the number of passes that produced a new snapshot.
func (m *Metrics) TotalChanges() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalChanges
}

// TotalNoOps returns the number of passes that left the snapshot unchanged.
func (m *Metrics) TotalNoOps() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalNoOps
}

// TotalCancelled returns the number of messages cancelled by a hook.
func (m *Metrics) TotalCancelled() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalCancelled
}

// TotalErrors returns the total number of failed passes.
func (m *Metrics) TotalErrors() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalErrors
}

// TotalPanics returns the total number of reducer panics recovered.
func (m *Metrics) TotalPanics() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalPanics
}

// AverageDuration returns the average pass duration.
func (m *Metrics) AverageDuration() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.totalDispatches == 0 {
		return 0
	}
	return m.totalDuration / time.Duration(m.totalDispatches)
}

// TypeStats returns a copy of the metrics for one action type, or nil.
func (m *Metrics) TypeStats(msgType string) *TypeMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tm := m.typeMetrics[msgType]
	if tm == nil {
		return nil
	}

	cp := *tm
	return &cp
}

// TopTypes returns the n most dispatched action types.
func (m *Metrics) TopTypes(n int) []*TypeMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	types := make([]*TypeMetrics, 0, len(m.typeMetrics))
	for _, tm := range m.typeMetrics {
		cp := *tm
		types = append(types, &cp)
	}

	sort.Slice(types, func(i, j int) bool {
		if types[i].DispatchCount != types[j].DispatchCount {
			return types[i].DispatchCount > types[j].DispatchCount
		}
		return types[i].Type < types[j].Type
	})

	if n > len(types) {
		n = len(types)
	}
	return types[:n]
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.typeMetrics = make(map[string]*TypeMetrics)
	m.totalDispatches = 0
	m.totalChanges = 0
	m.totalNoOps = 0
	m.totalCancelled = 0
	m.totalErrors = 0
	m.totalPanics = 0
	m.totalDuration = 0
}

// MetricsSnapshot is a point-in-time view of the global counters.
type MetricsSnapshot struct {
	TotalDispatches uint64
	TotalChanges    uint64
	TotalNoOps      uint64
	TotalCancelled  uint64
	TotalErrors     uint64
	TotalPanics     uint64
	AverageDuration time.Duration
	TypeCount       int
	Timestamp       time.Time
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := MetricsSnapshot{
		TotalDispatches: m.totalDispatches,
		TotalChanges:    m.totalChanges,
		TotalNoOps:      m.totalNoOps,
		TotalCancelled:  m.totalCancelled,
		TotalErrors:     m.totalErrors,
		TotalPanics:     m.totalPanics,
		TypeCount:       len(m.typeMetrics),
		Timestamp:       time.Now(),
	}

	if m.totalDispatches > 0 {
		s.AverageDuration = m.totalDuration / time.Duration(m.totalDispatches)
	}

	return s
}

// AverageDuration returns the average pass duration for the type.
func (tm *TypeMetrics) AverageDuration() time.Duration {
	if tm.DispatchCount == 0 {
		return 0
	}
	return tm.TotalDuration / time.Duration(tm.DispatchCount)
}

// ErrorRate returns the error rate as a percentage.
func (tm *TypeMetrics) ErrorRate() float64 {
	if tm.DispatchCount == 0 {
		return 0
	}
	return float64(tm.ErrorCount) / float64(tm.DispatchCount) * 100
}
