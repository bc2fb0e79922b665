package connsdk

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatisticsRecordSuccess(t *testing.T) {
	var s Statistics

	s.RecordSuccess(100)
	failed, total, avg := s.Snapshot()
	assert.Equal(t, int64(0), failed)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(100), avg)

	s.RecordSuccess(200)
	s.RecordSuccess(300)
	failed, total, avg = s.Snapshot()
	assert.Equal(t, int64(0), failed)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(200), avg)
}

func TestStatisticsAverageOrderIndependent(t *testing.T) {
	// 100, 200, 300 in any order averages exactly 200 under integer
	// incremental recomputation.
	perms := [][]int64{
		{100, 200, 300},
		{100, 300, 200},
		{200, 100, 300},
		{200, 300, 100},
		{300, 100, 200},
		{300, 200, 100},
	}
	for _, p := range perms {
		var s Statistics
		for _, ms := range p {
			s.RecordSuccess(ms)
		}
		_, _, avg := s.Snapshot()
		assert.Equal(t, int64(200), avg, "order %v", p)
	}
}

func TestStatisticsFailuresLeaveAverageUntouched(t *testing.T) {
	var s Statistics

	s.RecordFailure()
	failed, total, avg := s.Snapshot()
	assert.Equal(t, int64(1), failed)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(0), avg)

	s.RecordSuccess(40)
	s.RecordFailure()
	s.RecordSuccess(60)
	failed, total, avg = s.Snapshot()
	assert.Equal(t, int64(2), failed)
	assert.Equal(t, int64(4), total)
	assert.Equal(t, int64(50), avg)
}

func TestStatisticsClearAndReuse(t *testing.T) {
	var s Statistics
	s.RecordSuccess(500)
	s.RecordFailure()

	s.Clear()
	failed, total, avg := s.Snapshot()
	assert.Zero(t, failed)
	assert.Zero(t, total)
	assert.Zero(t, avg)

	s.RecordSuccess(70)
	failed, total, avg = s.Snapshot()
	assert.Equal(t, int64(0), failed)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(70), avg)
}

func TestStatisticsConcurrentCounts(t *testing.T) {
	var s Statistics
	const (
		writers    = 8
		perWriter  = 1000
		latencyMs  = 10
		totalPolls = writers * perWriter * 2
	)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				s.RecordSuccess(latencyMs)
				s.RecordFailure()
			}
		}()
	}
	wg.Wait()

	failed, total, avg := s.Snapshot()
	assert.Equal(t, int64(writers*perWriter), failed)
	assert.Equal(t, int64(totalPolls), total)
	// Every success took the same time, so the average converges to it
	// regardless of interleaving.
	assert.Equal(t, int64(latencyMs), avg)
}

func TestConnectionStatsRegisterTarget(t *testing.T) {
	cs := NewConnectionStats("/dev/ttyUSB0", "meter cabinet A")
	assert.Equal(t, "/dev/ttyUSB0", cs.PortTarget)
	assert.Equal(t, "meter cabinet A", cs.PortNote)

	a := cs.RegisterTarget("3")
	require.NotNil(t, a)
	assert.Same(t, a, cs.RegisterTarget("3"), "same address must return the same handle")
	assert.Same(t, a, cs.GetTarget("3"))

	// "" is the slot for unaddressed targets.
	u := cs.RegisterTarget("")
	require.NotNil(t, u)
	assert.Same(t, u, cs.GetTarget(""))
	assert.NotSame(t, a, u)

	assert.Nil(t, cs.GetTarget("9"))
	assert.ElementsMatch(t, []string{"3", ""}, cs.Addresses())
}

func TestConnectionStatsAggregate(t *testing.T) {
	cs := NewConnectionStats("/dev/ttyUSB0", "")

	// Device A: three successes at 100/200/300 ms then one failure.
	a := cs.RegisterTarget("1")
	a.RecordSuccess(100)
	a.RecordSuccess(200)
	a.RecordSuccess(300)
	a.RecordFailure()

	// Device B: one success at 50 ms.
	b := cs.RegisterTarget("2")
	b.RecordSuccess(50)

	failed, total, avg := cs.GetAllStats().Snapshot()
	assert.Equal(t, int64(1), failed)
	assert.Equal(t, int64(5), total)
	// (200*3 + 50*1) / 4 = 162 under integer division.
	assert.Equal(t, int64(162), avg)
}

func TestConnectionStatsAggregateAllFailed(t *testing.T) {
	cs := NewConnectionStats("/dev/ttyUSB0", "")
	a := cs.RegisterTarget("1")
	a.RecordFailure()
	a.RecordFailure()
	b := cs.RegisterTarget("2")
	b.RecordFailure()

	failed, total, avg := cs.GetAllStats().Snapshot()
	assert.Equal(t, int64(3), failed)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(0), avg)
}

func TestConnectionStatsAggregateEmpty(t *testing.T) {
	cs := NewConnectionStats("/dev/ttyUSB0", "")
	failed, total, avg := cs.GetAllStats().Snapshot()
	assert.Zero(t, failed)
	assert.Zero(t, total)
	assert.Zero(t, avg)
}
