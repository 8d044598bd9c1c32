// Package convexec drives a conversion run end to end: discovery, output
// tree preparation, worker pool execution, and lifecycle reporting. It is
// the only layer the CLI and the web handlers call into.
package convexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aditya-xq/PicToWebP/pkg/codec"
	"github.com/aditya-xq/PicToWebP/pkg/convert"
	"github.com/aditya-xq/PicToWebP/pkg/notify"
	"github.com/aditya-xq/PicToWebP/pkg/runs"
)

// ErrOutputInsideSource rejects an output root nested inside the source
// tree, which would make the run feed on its own output.
var ErrOutputInsideSource = errors.New("output folder must be outside the source folder")

type poolRunner interface {
	Run(ctx context.Context, jobs []convert.Job) (convert.RunStats, error)
}

// Service orchestrates conversion runs. Collaborators are injected with
// builder-style With methods; the zero service from NewService uses the real
// codec and filesystem discovery.
type Service struct {
	encoder     convert.Encoder
	sink        convert.ProgressSink
	sinkFor     func(runID string) convert.ProgressSink
	registry    *runs.Store
	discover    func(root string, opts convert.DiscoverOptions) ([]string, error)
	poolFactory func(p Params, enc convert.Encoder, sink convert.ProgressSink) poolRunner
}

// NewService builds a Service with default dependencies.
func NewService() *Service {
	return &Service{
		encoder:  codec.WebP{},
		discover: convert.Discover,
		poolFactory: func(p Params, enc convert.Encoder, sink convert.ProgressSink) poolRunner {
			logger := log.With().Str("component", "pool").Str("run_id", p.RunID).Logger()
			return &convert.Pool{
				Workers:    p.Threads,
				Encoder:    enc,
				Sink:       sink,
				JobTimeout: p.JobTimeout,
				Logger:     &logger,
			}
		},
	}
}

// WithEncoder replaces the image encoder (useful for tests).
func (s *Service) WithEncoder(enc convert.Encoder) *Service {
	s.encoder = enc
	return s
}

// WithSink attaches a notifier that receives progress events from every run.
func (s *Service) WithSink(sink convert.ProgressSink) *Service {
	s.sink = sink
	return s
}

// WithSinkFactory attaches a per-run notifier constructor, called once per
// Run with the run ID. Used to route events to per-run subscriber streams.
func (s *Service) WithSinkFactory(fn func(runID string) convert.ProgressSink) *Service {
	s.sinkFor = fn
	return s
}

// WithRegistry attaches a run store that tracks lifecycle and stats.
func (s *Service) WithRegistry(reg *runs.Store) *Service {
	s.registry = reg
	return s
}

// WithDiscoverer overrides file discovery (useful for tests).
func (s *Service) WithDiscoverer(fn func(string, convert.DiscoverOptions) ([]string, error)) *Service {
	s.discover = fn
	return s
}

// Run executes the pipeline: Discovering -> Running -> Completed, with
// Failed reachable only from the discovery phase and Cancelled reachable
// from Running via ctx. Individual job failures are contained in the stats
// and never fail the run.
//
// On cancellation the returned Result is non-nil (stats reflect the jobs
// that finished) and the error is ctx.Err().
func (s *Service) Run(ctx context.Context, params Params) (*Result, error) {
	if params.RunID == "" {
		params.RunID = uuid.New().String()
	}
	params.Quality = convert.ClampQuality(params.Quality)
	params.Threads = convert.ClampWorkers(params.Threads)

	logger := log.With().Str("component", "convexec").Str("run_id", params.RunID).Logger()
	startTime := time.Now().UTC()
	sink := s.runSink(params.RunID)

	s.ensureRecord(params, startTime)
	s.setState(params.RunID, runs.StateDiscovering)

	sourceDir, outputDir, err := resolveRoots(params)
	if err != nil {
		s.finishRecord(params.RunID, runs.StateFailed, convert.RunStats{}, err)
		return nil, err
	}
	params.SourceDir, params.OutputDir = sourceDir, outputDir
	// Server-started runs create their record before the roots are
	// resolved; keep the record in sync so callers learn the real output
	// folder.
	s.setRoots(params.RunID, sourceDir, outputDir)

	files, err := s.discover(sourceDir, convert.DiscoverOptions{ReencodeWebP: params.ReencodeWebP})
	if err != nil {
		logger.Error().Err(err).Msg("discovery failed")
		s.finishRecord(params.RunID, runs.StateFailed, convert.RunStats{}, err)
		return nil, err
	}
	logger.Info().Int("num_files", len(files)).Str("source", sourceDir).Msg("discovery finished")

	if params.CleanOutput {
		if err := backupExistingOutput(outputDir); err != nil {
			s.finishRecord(params.RunID, runs.StateFailed, convert.RunStats{}, err)
			return nil, err
		}
	}

	jobs := buildJobs(files, sourceDir, outputDir, params.Quality)

	result := &Result{
		RunID:     params.RunID,
		SourceDir: sourceDir,
		OutputDir: outputDir,
		StartTime: startTime,
	}

	// Zero discovered files is a valid, immediately completed run.
	if len(jobs) == 0 {
		result.State = runs.StateCompleted
		result.EndTime = time.Now().UTC()
		s.finishRecord(params.RunID, runs.StateCompleted, result.Stats, nil)
		sink.Notify(convert.ProgressEvent{Stats: result.Stats})
		return result, nil
	}

	s.setState(params.RunID, runs.StateRunning)
	sink.Notify(convert.ProgressEvent{Total: len(jobs), Stats: convert.RunStats{TotalJobs: len(jobs)}})

	pool := s.poolFactory(params, s.encoder, convert.ProgressFunc(s.onProgress(params.RunID, sink)))
	stats, runErr := pool.Run(ctx, jobs)

	result.Stats = stats
	result.EndTime = time.Now().UTC()

	if runErr != nil {
		logger.Warn().Err(runErr).Msg("run cancelled")
		result.State = runs.StateCancelled
		s.finishRecord(params.RunID, runs.StateCancelled, stats, nil)
		return result, runErr
	}

	logger.Info().
		Int("completed", stats.CompletedJobs).
		Int("failed", stats.FailedJobs).
		Int64("bytes_saved", stats.BytesSaved()).
		Dur("elapsed", stats.Elapsed).
		Msg("run completed")

	result.State = runs.StateCompleted
	s.finishRecord(params.RunID, runs.StateCompleted, stats, nil)
	return result, nil
}

// onProgress forwards pool events to the run's sink and mirrors the running
// stats into the registry.
func (s *Service) onProgress(runID string, sink convert.ProgressSink) func(convert.ProgressEvent) {
	return func(e convert.ProgressEvent) {
		if s.registry != nil {
			_ = s.registry.Update(runID, func(r *runs.Record) {
				r.Stats = e.Stats
			})
		}
		sink.Notify(e)
	}
}

// runSink combines the service-wide sink with the per-run one, if any.
func (s *Service) runSink(runID string) convert.ProgressSink {
	sinks := make(notify.Multi, 0, 2)
	if s.sink != nil {
		sinks = append(sinks, s.sink)
	}
	if s.sinkFor != nil {
		if perRun := s.sinkFor(runID); perRun != nil {
			sinks = append(sinks, perRun)
		}
	}
	if len(sinks) == 0 {
		return notify.Discard
	}
	return sinks
}

func (s *Service) ensureRecord(params Params, startedAt time.Time) {
	if s.registry == nil {
		return
	}
	if _, err := s.registry.Get(params.RunID); err == nil {
		return
	}
	s.registry.Create(runs.Record{
		ID:        params.RunID,
		SourceDir: params.SourceDir,
		OutputDir: params.OutputDir,
		Quality:   params.Quality,
		Workers:   params.Threads,
		State:     runs.StatePending,
		StartedAt: startedAt,
	})
}

func (s *Service) setRoots(runID, sourceDir, outputDir string) {
	if s.registry == nil {
		return
	}
	_ = s.registry.Update(runID, func(r *runs.Record) {
		r.SourceDir = sourceDir
		r.OutputDir = outputDir
	})
}

func (s *Service) setState(runID string, state runs.State) {
	if s.registry == nil {
		return
	}
	_ = s.registry.Update(runID, func(r *runs.Record) {
		r.State = state
	})
}

func (s *Service) finishRecord(runID string, state runs.State, stats convert.RunStats, err error) {
	if s.registry == nil {
		return
	}
	_ = s.registry.Update(runID, func(r *runs.Record) {
		r.State = state
		r.Stats = stats
		r.EndedAt = time.Now().UTC()
		if err != nil {
			r.Error = err.Error()
		}
	})
}

// resolveRoots normalizes the source and output roots and rejects an output
// nested inside the source.
func resolveRoots(params Params) (string, string, error) {
	sourceDir, err := filepath.Abs(params.SourceDir)
	if err != nil {
		return "", "", &convert.DiscoveryError{Root: params.SourceDir, Err: err}
	}

	outputDir := params.OutputDir
	if outputDir == "" {
		outputDir = sourceDir + "_webp"
	}
	outputDir, err = filepath.Abs(outputDir)
	if err != nil {
		return "", "", fmt.Errorf("resolve output folder: %w", err)
	}

	rel, err := filepath.Rel(sourceDir, outputDir)
	if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", ErrOutputInsideSource
	}
	return sourceDir, outputDir, nil
}

// backupExistingOutput moves a pre-existing output directory aside to a
// timestamped sibling so old conversions are never silently mixed with new
// ones.
func backupExistingOutput(outputDir string) error {
	if _, err := os.Stat(outputDir); os.IsNotExist(err) {
		return nil
	}
	backup := fmt.Sprintf("%s_backup_%d", outputDir, time.Now().Unix())
	if err := os.Rename(outputDir, backup); err != nil {
		return fmt.Errorf("back up existing output folder: %w", err)
	}
	log.Warn().Str("backup", backup).Msg("output folder already existed, moved aside")
	return nil
}

// buildJobs pairs each discovered relative path with its mirrored output
// path, swapping the extension for .webp.
func buildJobs(files []string, sourceDir, outputDir string, quality int) []convert.Job {
	jobs := make([]convert.Job, 0, len(files))
	for _, rel := range files {
		dest := rel[:len(rel)-len(filepath.Ext(rel))] + ".webp"
		jobs = append(jobs, convert.Job{
			Source:  filepath.Join(sourceDir, rel),
			Dest:    filepath.Join(outputDir, dest),
			Quality: quality,
		})
	}
	return jobs
}
