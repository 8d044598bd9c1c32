package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aditya-xq/PicToWebP/pkg/convert"
)

func event(completed, total int) convert.ProgressEvent {
	return convert.ProgressEvent{
		Completed: completed,
		Total:     total,
		Stats: convert.RunStats{
			TotalJobs:     total,
			CompletedJobs: completed,
		},
	}
}

func TestHub_DeliversToSubscriber(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("run-1")
	defer cancel()

	hub.Run("run-1").Notify(event(1, 3))

	select {
	case e := <-ch:
		require.Equal(t, 1, e.Completed)
		require.Equal(t, 3, e.Total)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestHub_LateJoinerSeesLastEvent(t *testing.T) {
	hub := NewHub()
	n := hub.Run("run-1")
	n.Notify(event(1, 2))
	n.Notify(event(2, 2))

	// Subscriber attaches after the run already finished.
	ch, cancel := hub.Subscribe("run-1")
	defer cancel()

	select {
	case e := <-ch:
		require.True(t, e.Done())
		require.Equal(t, 2, e.Completed)
	case <-time.After(time.Second):
		t.Fatal("late joiner saw nothing")
	}

	last, ok := hub.Last("run-1")
	require.True(t, ok)
	require.True(t, last.Done())
}

func TestHub_SlowConsumerDropsOldestKeepsFinal(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("run-1")
	defer cancel()

	// Publish far more events than the buffer holds without consuming.
	n := hub.Run("run-1")
	const total = 200
	for i := 1; i <= total; i++ {
		n.Notify(event(i, total))
	}

	// Drain: events may be missing from the front, but what remains is in
	// order and ends with the terminal event.
	var got []convert.ProgressEvent
	for {
		select {
		case e := <-ch:
			got = append(got, e)
			continue
		default:
		}
		break
	}

	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		require.Greater(t, got[i].Completed, got[i-1].Completed)
	}
	require.True(t, got[len(got)-1].Done(), "terminal event must survive drops")
}

func TestHub_IndependentRuns(t *testing.T) {
	hub := NewHub()
	ch1, cancel1 := hub.Subscribe("run-1")
	defer cancel1()
	ch2, cancel2 := hub.Subscribe("run-2")
	defer cancel2()

	hub.Run("run-1").Notify(event(1, 1))

	select {
	case <-ch1:
	case <-time.After(time.Second):
		t.Fatal("run-1 subscriber starved")
	}
	select {
	case e := <-ch2:
		t.Fatalf("run-2 subscriber got foreign event: %+v", e)
	default:
	}
}

func TestHub_CancelDetaches(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("run-1")
	cancel()
	cancel() // idempotent

	// Publishing after cancel must not panic on the closed channel.
	hub.Run("run-1").Notify(event(1, 1))

	_, open := <-ch
	require.False(t, open)
}

func TestHub_Forget(t *testing.T) {
	hub := NewHub()
	hub.Run("run-1").Notify(event(1, 1))
	_, ok := hub.Last("run-1")
	require.True(t, ok)

	hub.Forget("run-1")
	_, ok = hub.Last("run-1")
	require.False(t, ok)
}

func TestMulti_FansOut(t *testing.T) {
	var a, b int
	m := Multi{
		convert.ProgressFunc(func(convert.ProgressEvent) { a++ }),
		nil,
		convert.ProgressFunc(func(convert.ProgressEvent) { b++ }),
	}
	m.Notify(event(1, 1))
	require.Equal(t, 1, a)
	require.Equal(t, 1, b)
}

func TestHub_RetainsTerminalEventAcrossConcurrentWorkers(t *testing.T) {
	dir := t.TempDir()
	jobs := make([]convert.Job, 0, 4)
	for i := 0; i < 4; i++ {
		src := filepath.Join(dir, fmt.Sprintf("f%d.jpg", i))
		require.NoError(t, os.WriteFile(src, make([]byte, 50+i), 0o644))
		jobs = append(jobs, convert.Job{
			Source:  src,
			Dest:    filepath.Join(dir, "out", fmt.Sprintf("f%d.webp", i)),
			Quality: 80,
		})
	}

	hub := NewHub()
	forward := hub.Run("run-1")

	// Delay every non-terminal delivery: if the pool let snapshots race
	// past each other, the hub would retain a stale non-terminal event.
	sink := convert.ProgressFunc(func(e convert.ProgressEvent) {
		if !e.Done() {
			time.Sleep(10 * time.Millisecond)
		}
		forward.Notify(e)
	})

	pool := &convert.Pool{
		Workers: 2,
		Encoder: convert.EncoderFunc(func(src []byte, quality int) ([]byte, error) { return src, nil }),
		Sink:    sink,
	}
	_, err := pool.Run(context.Background(), jobs)
	require.NoError(t, err)

	last, ok := hub.Last("run-1")
	require.True(t, ok)
	require.True(t, last.Done(), "late joiners must replay the terminal event")
}
