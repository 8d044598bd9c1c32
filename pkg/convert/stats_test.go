package convert

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAggregator_RecordSuccessAndFailure(t *testing.T) {
	agg := NewAggregator(3)
	agg.Start()

	agg.Record(JobResult{OriginalBytes: 1000, ConvertedBytes: 400})
	agg.Record(JobResult{OriginalBytes: 2000, ConvertedBytes: 900})
	agg.Record(JobResult{Kind: KindDecode, OriginalBytes: 500})

	stats := agg.Finish()
	require.Equal(t, 3, stats.TotalJobs)
	require.Equal(t, 2, stats.CompletedJobs)
	require.Equal(t, 1, stats.FailedJobs)
	require.True(t, stats.Resolved())

	// Failed jobs contribute nothing to byte totals.
	require.Equal(t, int64(3000), stats.TotalOriginalBytes)
	require.Equal(t, int64(1300), stats.TotalConvertedBytes)
	require.Equal(t, int64(1700), stats.BytesSaved())
}

func TestAggregator_NoLostUpdates(t *testing.T) {
	const n = 1000
	agg := NewAggregator(n)
	agg.Start()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%10 == 0 {
				agg.Record(JobResult{Kind: KindEncode})
				return
			}
			agg.Record(JobResult{OriginalBytes: 10, ConvertedBytes: 3})
		}()
	}
	wg.Wait()

	stats := agg.Finish()
	require.Equal(t, n, stats.CompletedJobs+stats.FailedJobs)
	require.Equal(t, n/10, stats.FailedJobs)
	require.Equal(t, int64(900*10), stats.TotalOriginalBytes)
	require.Equal(t, int64(900*3), stats.TotalConvertedBytes)
}

func TestAggregator_SnapshotIsConsistent(t *testing.T) {
	agg := NewAggregator(100)
	agg.Start()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			agg.Record(JobResult{OriginalBytes: 7, ConvertedBytes: 7})
		}
		close(stop)
	}()

	// Every snapshot must be internally consistent: byte totals move in
	// lockstep with the completed counter, never a torn mix.
	for {
		s := agg.Snapshot()
		require.Equal(t, int64(s.CompletedJobs)*7, s.TotalOriginalBytes)
		require.Equal(t, s.TotalOriginalBytes, s.TotalConvertedBytes)
		select {
		case <-stop:
			wg.Wait()
			require.True(t, agg.Finish().Resolved())
			return
		default:
		}
	}
}

func TestAggregator_CountersMonotonic(t *testing.T) {
	agg := NewAggregator(10)
	agg.Start()

	prev := agg.Snapshot()
	for i := 0; i < 10; i++ {
		cur := agg.Record(JobResult{OriginalBytes: 1, ConvertedBytes: 1})
		require.GreaterOrEqual(t, cur.CompletedJobs, prev.CompletedJobs)
		require.GreaterOrEqual(t, cur.TotalOriginalBytes, prev.TotalOriginalBytes)
		require.LessOrEqual(t, cur.CompletedJobs+cur.FailedJobs, cur.TotalJobs)
		prev = cur
	}
	require.True(t, agg.Snapshot().Resolved())
}

func TestRunStats_SavedPercent(t *testing.T) {
	s := RunStats{TotalOriginalBytes: 1000, TotalConvertedBytes: 250}
	require.InDelta(t, 75.0, s.SavedPercent(), 0.001)

	require.Zero(t, RunStats{}.SavedPercent())
}
