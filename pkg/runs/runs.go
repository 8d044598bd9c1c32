// Package runs keeps metadata about conversion runs for the server front
// end: submitted parameters, lifecycle state, and the final statistics.
// The store is in-memory; runs are ephemeral and a restart starts with a
// clean slate.
package runs

import (
	"fmt"
	"time"

	"github.com/aditya-xq/PicToWebP/pkg/convert"
)

// State is a run's lifecycle state.
type State string

const (
	StatePending     State = "pending"
	StateDiscovering State = "discovering"
	StateRunning     State = "running"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
	StateCancelled   State = "cancelled"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Record is the stored metadata for one conversion run.
type Record struct {
	ID        string `json:"id"`
	SourceDir string `json:"source_folder"`
	OutputDir string `json:"output_folder"`
	Quality   int    `json:"quality"`
	Workers   int    `json:"threads"`

	State State            `json:"state"`
	Stats convert.RunStats `json:"stats"`

	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitzero"`

	// Error holds the discovery failure message for failed runs.
	Error string `json:"error,omitempty"`
}

// NotFoundError reports a lookup for an unknown run ID.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("run %q not found", e.ID)
}
