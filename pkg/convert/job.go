// Package convert implements the concurrent image conversion pipeline:
// file discovery, the bounded worker pool, and aggregate run statistics.
package convert

// Job is one file's scheduled conversion request. It is immutable once
// created and consumed by exactly one worker.
type Job struct {
	// Source is the absolute path of the input image.
	Source string

	// Dest is the absolute path the converted file is written to. Parent
	// directories are created as needed.
	Dest string

	// Quality is the WebP quality parameter, 1-100.
	Quality int
}

// ErrorKind classifies a per-job failure. Per-job failures are recorded in
// the run statistics and never abort the run.
type ErrorKind string

const (
	// KindRead means the source file could not be read.
	KindRead ErrorKind = "read"

	// KindDecode means the source bytes were not a decodable image.
	KindDecode ErrorKind = "decode"

	// KindEncode means WebP encoding failed.
	KindEncode ErrorKind = "encode"

	// KindWrite means the converted bytes could not be written.
	KindWrite ErrorKind = "write"

	// KindTimeout means the job exceeded the configured per-job timeout.
	KindTimeout ErrorKind = "timeout"
)

// JobResult is the recorded outcome of executing a Job exactly once.
// A successful result has an empty Kind and a nil Err.
type JobResult struct {
	Job Job

	// Kind is set for failed jobs only.
	Kind ErrorKind

	// Err holds the underlying failure for logging. Nil on success.
	Err error

	// OriginalBytes is the size of the source file.
	OriginalBytes int64

	// ConvertedBytes is the size of the written output. Zero on failure.
	ConvertedBytes int64
}

// Failed reports whether the job ended in a failure.
func (r JobResult) Failed() bool {
	return r.Kind != ""
}

// ProgressEvent is a point-in-time view of a running conversion, emitted
// once per recorded JobResult. Events are ephemeral and not persisted.
type ProgressEvent struct {
	Completed int      `json:"completed"`
	Failed    int      `json:"failed"`
	Total     int      `json:"num_files"`
	Stats     RunStats `json:"stats"`
}

// Done reports whether this event describes a fully resolved run.
func (e ProgressEvent) Done() bool {
	return e.Completed+e.Failed == e.Total
}

// ProgressSink receives progress events from the pool. Implementations must
// not block the calling worker for unbounded time.
type ProgressSink interface {
	Notify(ProgressEvent)
}

// ProgressFunc adapts a function to the ProgressSink interface.
type ProgressFunc func(ProgressEvent)

// Notify calls f(e).
func (f ProgressFunc) Notify(e ProgressEvent) { f(e) }
