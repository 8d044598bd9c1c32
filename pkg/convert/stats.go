package convert

import (
	"sync"
	"time"
)

// RunStats holds aggregate counters for one conversion run. Counters are
// monotonically non-decreasing for the duration of the run, and
// CompletedJobs+FailedJobs reaches TotalJobs exactly once, at completion.
// Failed jobs contribute nothing to the byte totals.
type RunStats struct {
	TotalJobs           int           `json:"total_jobs"`
	CompletedJobs       int           `json:"completed_jobs"`
	FailedJobs          int           `json:"failed_jobs"`
	TotalOriginalBytes  int64         `json:"total_original_bytes"`
	TotalConvertedBytes int64         `json:"total_converted_bytes"`
	Elapsed             time.Duration `json:"elapsed_ns"`
}

// Resolved reports whether every job has exactly one recorded result.
func (s RunStats) Resolved() bool {
	return s.CompletedJobs+s.FailedJobs == s.TotalJobs
}

// BytesSaved returns the aggregate byte difference between inputs and
// outputs of successful jobs. Negative means outputs grew overall.
func (s RunStats) BytesSaved() int64 {
	return s.TotalOriginalBytes - s.TotalConvertedBytes
}

// SavedPercent returns BytesSaved as a percentage of the original bytes,
// or 0 when nothing was converted.
func (s RunStats) SavedPercent() float64 {
	if s.TotalOriginalBytes == 0 {
		return 0
	}
	return float64(s.BytesSaved()) / float64(s.TotalOriginalBytes) * 100
}

// Aggregator accumulates JobResults into RunStats. All methods are safe for
// concurrent use; Record calls are serialized so no increment is ever lost.
type Aggregator struct {
	mu        sync.Mutex
	stats     RunStats
	startedAt time.Time
	lastAt    time.Time
	finished  bool
}

// NewAggregator creates an Aggregator for a run of total jobs. The clock
// starts on the first call to Start.
func NewAggregator(total int) *Aggregator {
	return &Aggregator{stats: RunStats{TotalJobs: total}}
}

// Start marks the beginning of the run for elapsed-time measurement.
func (a *Aggregator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.startedAt.IsZero() {
		a.startedAt = time.Now()
		a.lastAt = a.startedAt
	}
}

// Record folds one job outcome into the running totals and returns a
// snapshot taken under the same lock, so callers can emit a progress event
// that is consistent with the increment they caused.
func (a *Aggregator) Record(r JobResult) RunStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	if r.Failed() {
		a.stats.FailedJobs++
	} else {
		a.stats.CompletedJobs++
		a.stats.TotalOriginalBytes += r.OriginalBytes
		a.stats.TotalConvertedBytes += r.ConvertedBytes
	}
	a.lastAt = time.Now()
	a.stats.Elapsed = a.lastAt.Sub(a.startedAt)
	return a.stats
}

// Snapshot returns a consistent point-in-time copy of the stats. For a
// running aggregator the elapsed time reflects the last recorded result.
func (a *Aggregator) Snapshot() RunStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Finish stamps the final elapsed time and returns the final stats. The
// aggregator is read-only afterwards.
func (a *Aggregator) Finish() RunStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.finished {
		a.finished = true
		if !a.startedAt.IsZero() {
			a.stats.Elapsed = time.Since(a.startedAt)
		}
	}
	return a.stats
}
