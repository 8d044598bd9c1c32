package v1

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aditya-xq/PicToWebP/pkg/convert"
	"github.com/aditya-xq/PicToWebP/pkg/runs"
)

func parseSSEEvents(t *testing.T, body string) []convert.ProgressEvent {
	t.Helper()
	var events []convert.ProgressEvent
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var e convert.ProgressEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e))
		events = append(events, e)
	}
	return events
}

func TestConversionEvents_UnknownRunIs404(t *testing.T) {
	deps, _ := newTestDeps()
	router := testRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversions/ghost/events", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestConversionEvents_StreamsUntilTerminalEvent(t *testing.T) {
	deps, _ := newTestDeps()
	router := testRouter(deps)

	deps.Registry.Create(runs.Record{ID: "run-1", State: runs.StateRunning})
	sink := deps.Hub.Run("run-1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversions/run-1/events", nil)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		router.ServeHTTP(w, req)
	}()

	// Publish a couple of progress events ending with the terminal one. The
	// handler returns on its own once it has written the terminal event.
	sink.Notify(convert.ProgressEvent{Completed: 1, Total: 2, Stats: convert.RunStats{TotalJobs: 2, CompletedJobs: 1}})
	sink.Notify(convert.ProgressEvent{Completed: 2, Total: 2, Stats: convert.RunStats{TotalJobs: 2, CompletedJobs: 2}})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not finish after the terminal event")
	}

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	events := parseSSEEvents(t, w.Body.String())
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.True(t, last.Done(), "stream must end with the terminal event")
	require.Equal(t, 2, last.Completed)
}

func TestConversionEvents_FinishedRunReplaysLastEvent(t *testing.T) {
	deps, _ := newTestDeps()
	router := testRouter(deps)

	stats := convert.RunStats{TotalJobs: 3, CompletedJobs: 3}
	deps.Registry.Create(runs.Record{ID: "run-done", State: runs.StateCompleted, Stats: stats})
	deps.Hub.Run("run-done").Notify(convert.ProgressEvent{Completed: 3, Total: 3, Stats: stats})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversions/run-done/events", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	events := parseSSEEvents(t, w.Body.String())
	require.Len(t, events, 1)
	require.True(t, events[0].Done())
}

func TestConversionEvents_TerminalRecordWithoutHubState(t *testing.T) {
	deps, _ := newTestDeps()
	router := testRouter(deps)

	// The record is terminal but the hub never saw the run (e.g. after a
	// restart). The stream still ends with one synthesized event.
	stats := convert.RunStats{TotalJobs: 4, CompletedJobs: 3, FailedJobs: 1}
	deps.Registry.Create(runs.Record{ID: "run-old", State: runs.StateCompleted, Stats: stats})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversions/run-old/events", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	events := parseSSEEvents(t, w.Body.String())
	require.Len(t, events, 1)
	require.Equal(t, 3, events[0].Completed)
	require.Equal(t, 1, events[0].Failed)
	require.True(t, events[0].Done())
}

func TestConversionEvents_ClosesWhenRunCancelled(t *testing.T) {
	deps, _ := newTestDeps()
	router := testRouter(deps)

	deps.Registry.Create(runs.Record{ID: "run-c", State: runs.StateRunning})
	sink := deps.Hub.Run("run-c")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversions/run-c/events", nil)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		router.ServeHTTP(w, req)
	}()

	stats := convert.RunStats{TotalJobs: 5, CompletedJobs: 2}
	sink.Notify(convert.ProgressEvent{Completed: 2, Total: 5, Stats: stats})

	// The run ends without ever publishing a Done event.
	require.NoError(t, deps.Registry.Update("run-c", func(r *runs.Record) {
		r.State = runs.StateCancelled
		r.Stats = stats
	}))

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("stream did not close after the run was cancelled")
	}

	events := parseSSEEvents(t, w.Body.String())
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, 2, last.Stats.CompletedJobs)
	require.False(t, last.Done())
}
