package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/aditya-xq/PicToWebP/pkg/convert"
	"github.com/aditya-xq/PicToWebP/pkg/runs"
	"github.com/aditya-xq/PicToWebP/pkg/server/api"
)

// registryPollInterval bounds how long a stream stays open for a run that
// ends without a terminal event, such as a cancelled one.
const registryPollInterval = 500 * time.Millisecond

// ConversionEventsHandler handles GET /api/v1/conversions/{id}/events
//
// Streams the run's progress as server-sent events, one event per recorded
// file:
//
//	data: {"completed":3,"failed":0,"num_files":10,"stats":{...}}
//
// The stream ends when the run reaches a terminal state or the client
// disconnects. Subscribing to a finished run emits its final state and ends
// immediately. 404 for an unknown run.
func ConversionEventsHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		record, err := deps.Registry.Get(id)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			api.WriteJSONError(w, http.StatusInternalServerError,
				"Internal Server Error", "STREAMING_UNSUPPORTED", "response writer does not support streaming")
			return
		}

		events, cancel := deps.Hub.Subscribe(id)
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		// An already-terminal run gets one authoritative event from the
		// record, whether or not the hub retained anything.
		if record.State.Terminal() {
			_ = writeSSE(w, recordEvent(record))
			flusher.Flush()
			return
		}

		ticker := time.NewTicker(registryPollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				// A cancelled run never publishes a Done event; close
				// the stream once the registry reports a terminal state.
				rec, err := deps.Registry.Get(id)
				if err != nil {
					return
				}
				if rec.State.Terminal() {
					_ = writeSSE(w, recordEvent(rec))
					flusher.Flush()
					return
				}
			case e, open := <-events:
				if !open {
					return
				}
				if err := writeSSE(w, e); err != nil {
					log.Debug().
						Str("component", "api").
						Str("run_id", id).
						Err(err).
						Msg("event stream client went away")
					return
				}
				flusher.Flush()
				if e.Done() {
					return
				}
			}
		}
	}
}

// recordEvent builds a progress event from a run record's stored stats.
func recordEvent(rec runs.Record) convert.ProgressEvent {
	return convert.ProgressEvent{
		Completed: rec.Stats.CompletedJobs,
		Failed:    rec.Stats.FailedJobs,
		Total:     rec.Stats.TotalJobs,
		Stats:     rec.Stats,
	}
}

func writeSSE(w http.ResponseWriter, e convert.ProgressEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
