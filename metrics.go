package miniauth

import "sync/atomic"

// MetricID names one engine counter.
type MetricID uint8

const (
	// MetricIssueSuccess counts successful payload-to-token exchanges.
	MetricIssueSuccess MetricID = iota
	// MetricIssueSignatureMismatch counts payloads with bad signatures.
	MetricIssueSignatureMismatch
	// MetricIssueExpired counts stale payloads.
	MetricIssueExpired
	// MetricIssueMalformed counts unparseable payloads and identities.
	MetricIssueMalformed
	// MetricIssueRateLimited counts throttled issuance attempts.
	MetricIssueRateLimited
	// MetricReplayDetected counts replayed payloads.
	MetricReplayDetected
	// MetricValidateSuccess counts accepted bearer tokens.
	MetricValidateSuccess
	// MetricValidateFailure counts rejected bearer tokens.
	MetricValidateFailure
	// MetricRefreshSuccess counts successful token refreshes.
	MetricRefreshSuccess
	// MetricRefreshFailure counts failed token refreshes.
	MetricRefreshFailure
	// MetricRefreshRateLimited counts throttled refresh attempts.
	MetricRefreshRateLimited

	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of padded atomic counters. A disabled Metrics is a
// no-op on every path.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics returns a counter set honoring cfg.Enabled.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counting is active.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Snapshot copies all counters. Safe to call concurrently with Inc.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snapshot := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricIDCount)}
	if m == nil {
		return snapshot
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snapshot.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return snapshot
}
