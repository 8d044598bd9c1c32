package convexec

import (
	"time"

	"github.com/aditya-xq/PicToWebP/pkg/convert"
	"github.com/aditya-xq/PicToWebP/pkg/runs"
)

// Params defines the input required to initiate a conversion run.
type Params struct {
	// RunID is optional; a UUID is generated when empty.
	RunID string

	// SourceDir is the root of the tree to convert. Must be an existing
	// directory; anything else fails discovery.
	SourceDir string

	// OutputDir is the root the converted tree is mirrored into. Empty
	// defaults to a "<source>_webp" sibling directory. Must not live
	// inside SourceDir.
	OutputDir string

	// Quality is the WebP quality, 1-100. Out-of-range values fall back
	// to the default rather than failing the run.
	Quality int

	// Threads is the worker count. Out-of-range values fall back to the
	// default, capped at a sane upper bound.
	Threads int

	// JobTimeout bounds a single conversion. Zero disables it.
	JobTimeout time.Duration

	// ReencodeWebP also converts files that are already WebP.
	ReencodeWebP bool

	// CleanOutput moves a pre-existing output directory aside to a
	// timestamped backup before the run, instead of writing into it.
	CleanOutput bool
}

// Result describes a finished (or cancelled) conversion run.
type Result struct {
	RunID     string           `json:"id"`
	SourceDir string           `json:"source_folder"`
	OutputDir string           `json:"output_folder"`
	State     runs.State       `json:"state"`
	Stats     convert.RunStats `json:"stats"`
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time"`
}
