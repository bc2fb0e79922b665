package connsdk

import "sync/atomic"

// Statistics is a set of three independently mutable poll counters. There is
// no compound lock: each field is updated atomically on its own, so a reader
// may observe a transient cross-field inconsistency (total already
// incremented, average not yet updated). That weak consistency is an accepted
// trade-off of the design, not a bug to fix with a mutex.
//
// Share instances by pointer; the polling goroutine is the sole writer while
// arbitrary reader goroutines may snapshot concurrently.
type Statistics struct {
	failedPollCount   atomic.Int64
	totalPollCount    atomic.Int64
	averageResponseMs atomic.Int64
}

// RecordSuccess counts one successful poll that took responseMs.
//
// The average is a weighted incremental mean over successful polls only,
// recomputed with integer division and committed with a compare-and-retry
// loop on the average field alone.
func (s *Statistics) RecordSuccess(responseMs int64) {
	origTotal := s.totalPollCount.Add(1) - 1
	origFailed := s.failedPollCount.Load()
	successCount := origTotal - origFailed

	for {
		origAvg := s.averageResponseMs.Load()
		newAvg := (origAvg*successCount + responseMs) / (successCount + 1)
		if s.averageResponseMs.CompareAndSwap(origAvg, newAvg) {
			return
		}
	}
}

// RecordFailure counts one failed poll. The average is untouched: it
// reflects successful polls only and is meaningless before the first
// success.
func (s *Statistics) RecordFailure() {
	s.totalPollCount.Add(1)
	s.failedPollCount.Add(1)
}

// Snapshot returns the current counters. Each field is read independently;
// the triple is not a linearizable transaction.
func (s *Statistics) Snapshot() (failed, total, averageMs int64) {
	return s.failedPollCount.Load(),
		s.totalPollCount.Load(),
		s.averageResponseMs.Load()
}

// Clear resets all three fields to zero, each independently.
func (s *Statistics) Clear() {
	s.failedPollCount.Store(0)
	s.totalPollCount.Store(0)
	s.averageResponseMs.Store(0)
}

// merge folds next into s: counts are added, and next's average is merged
// into s's with the same success-count weighting RecordSuccess uses. The
// average update runs as a compare-and-retry because its weights derive from
// the just-updated count fields.
//
// When neither side has a successful poll the average update is skipped; the
// average is undefined until the first success.
func (s *Statistics) merge(next *Statistics) {
	nextFailed := next.failedPollCount.Load()
	nextTotal := next.totalPollCount.Load()
	nextAvg := next.averageResponseMs.Load()
	nextSuccess := nextTotal - nextFailed

	s.failedPollCount.Add(nextFailed)
	s.totalPollCount.Add(nextTotal)

	for {
		origAvg := s.averageResponseMs.Load()
		combinedSuccess := s.totalPollCount.Load() - s.failedPollCount.Load()
		priorSuccess := combinedSuccess - nextSuccess
		if combinedSuccess == 0 {
			return
		}
		newAvg := (origAvg*priorSuccess + nextAvg*nextSuccess) / combinedSuccess
		if s.averageResponseMs.CompareAndSwap(origAvg, newAvg) {
			return
		}
	}
}

// TargetStats is the per-point statistics handle. It is created during
// InitTargets when a family opts in, and the same instance is shared by
// pointer between the point's InitedTarget and the connection-level index;
// it lives as long as its longest holder.
type TargetStats struct {
	Statistics
}

// ConnectionStats indexes the per-point statistics of one connection by
// target address and aggregates across them.
//
// Registration happens inside InitTargets, before the host starts polling or
// accepting queries; afterwards the index is read-only, which is what lets
// GetTarget and GetAllStats run without any lock.
type ConnectionStats struct {
	// PortTarget names the physical port or endpoint of the connection
	// (e.g. "/dev/ttyUSB0").
	PortTarget string

	// PortNote is optional free-form operator information about the port.
	PortNote string

	targets map[string]*TargetStats
}

// NewConnectionStats creates an empty index for one connection.
func NewConnectionStats(portTarget, portNote string) *ConnectionStats {
	return &ConnectionStats{
		PortTarget: portTarget,
		PortNote:   portNote,
		targets:    make(map[string]*TargetStats),
	}
}

// RegisterTarget returns the stats handle for addressNumber, creating it on
// first use. The address number distinguishes physical devices on a chained
// bus (for Modbus, the device ID); "" is the slot for unaddressed targets.
// Each address maps to exactly one TargetStats for the connection's
// lifetime.
func (c *ConnectionStats) RegisterTarget(addressNumber string) *TargetStats {
	if ts, ok := c.targets[addressNumber]; ok {
		return ts
	}
	ts := &TargetStats{}
	c.targets[addressNumber] = ts
	return ts
}

// GetTarget returns the stats handle for addressNumber, or nil when none is
// registered.
func (c *ConnectionStats) GetTarget(addressNumber string) *TargetStats {
	return c.targets[addressNumber]
}

// Addresses returns the registered address numbers.
func (c *ConnectionStats) Addresses() []string {
	out := make([]string, 0, len(c.targets))
	for addr := range c.targets {
		out = append(out, addr)
	}
	return out
}

// GetAllStats folds every registered target into one aggregate: failure and
// total counts are summed, and the per-target averages are merged pairwise
// with success-count weighting. The result is a connection-wide failure rate
// and latency estimate obtained without blocking any writer.
func (c *ConnectionStats) GetAllStats() *Statistics {
	agg := &Statistics{}
	for _, ts := range c.targets {
		agg.merge(&ts.Statistics)
	}
	return agg
}
