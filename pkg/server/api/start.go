package api

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aditya-xq/PicToWebP/pkg/convexec"
	"github.com/aditya-xq/PicToWebP/pkg/runs"
)

// StartRun registers a pending run record and launches the conversion in the
// background, returning the run ID immediately. The run outlives the HTTP
// request, so it executes under its own context and a disconnecting client
// cannot cancel it.
func StartRun(deps *Deps, params convexec.Params) (string, error) {
	if deps.Runner == nil {
		return "", errors.New("no conversion runner configured")
	}
	if params.RunID == "" {
		params.RunID = uuid.New().String()
	}

	if deps.Registry != nil {
		deps.Registry.Create(runs.Record{
			ID:        params.RunID,
			SourceDir: params.SourceDir,
			OutputDir: params.OutputDir,
			Quality:   params.Quality,
			Workers:   params.Threads,
			State:     runs.StatePending,
			StartedAt: time.Now().UTC(),
		})
	}

	go func() {
		if _, err := deps.Runner.Run(context.Background(), params); err != nil {
			log.Error().
				Str("component", "api").
				Str("run_id", params.RunID).
				Err(err).
				Msg("background conversion run failed")
		}
	}()

	return params.RunID, nil
}
