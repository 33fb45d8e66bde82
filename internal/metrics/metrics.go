package metrics

import "sync/atomic"

// MetricID identifies a single counter.
type MetricID uint8

const (
	MetricSignUpOTPRequested MetricID = iota
	MetricSignUpOTPReissued
	MetricSignUpCompleted
	MetricResetOTPRequested
	MetricResetSessionOpened
	MetricResetCompleted
	MetricEmailChangeRequested
	MetricEmailChangeCompleted
	MetricOTPRejected
	MetricOTPRateLimited
	MetricOTPExhausted
	MetricLoginSuccess
	MetricLoginFailure
	MetricAccessRefreshed
	MetricRefreshRejected
	MetricJoinCodeGenerated
	MetricJoinCodeRedeemed
	MetricJoinCodeInvalidated
	MetricJoinCodeRateLimited

	MetricIDCount
)

// Config controls whether counting is active.
type Config struct {
	Enabled bool
}

// Metrics is a fixed-size bank of atomic counters. A disabled instance
// turns every operation into a no-op so call sites never branch.
type Metrics struct {
	enabled  bool
	counters [MetricIDCount]atomic.Uint64
}

// Snapshot is a point-in-time copy of all non-zero counters.
type Snapshot struct {
	Counters map[MetricID]uint64
}

func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Get returns the current value of the counter for id.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || id >= MetricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// TakeSnapshot copies all non-zero counters.
func (m *Metrics) TakeSnapshot() Snapshot {
	snapshot := Snapshot{Counters: make(map[MetricID]uint64)}
	if m == nil || !m.enabled {
		return snapshot
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		if v := m.counters[id].Load(); v > 0 {
			snapshot.Counters[id] = v
		}
	}
	return snapshot
}
