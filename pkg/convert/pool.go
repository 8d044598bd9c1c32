package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultWorkers is the worker count used when none is configured.
	DefaultWorkers = 16

	// DefaultQuality is the WebP quality used when none is configured.
	DefaultQuality = 80

	maxWorkers = 128
)

// ClampWorkers normalizes a configured worker count: out-of-range or
// non-positive values fall back to DefaultWorkers, then the result is capped
// at maxWorkers to avoid resource exhaustion.
func ClampWorkers(n int) int {
	if n <= 0 {
		return DefaultWorkers
	}
	if n > maxWorkers {
		return maxWorkers
	}
	return n
}

// ClampQuality normalizes a configured quality: values outside 1-100 fall
// back to DefaultQuality.
func ClampQuality(q int) int {
	if q < 1 || q > 100 {
		return DefaultQuality
	}
	return q
}

// Pool executes conversion jobs with a fixed number of workers pulling from
// one shared queue. The pull model is the load-balancing decision: slow jobs
// never starve fast workers the way static partitioning would.
type Pool struct {
	// Workers is the concurrency; normalized via ClampWorkers at Run.
	Workers int

	// Encoder performs the actual byte conversion.
	Encoder Encoder

	// Sink receives one progress event per recorded result, delivered in
	// recorded order across workers. Optional.
	Sink ProgressSink

	// JobTimeout bounds a single job. Zero disables the bound. A job that
	// exceeds it is recorded as a KindTimeout failure; the pool moves on
	// without waiting for the hung call.
	JobTimeout time.Duration

	// Logger is optional; nil falls back to the global logger.
	Logger *zerolog.Logger
}

// Run executes jobs until every one has exactly one recorded result, or
// until ctx is cancelled. Cancellation is graceful: in-flight jobs finish
// and are recorded, no further jobs are dispatched, and ctx.Err() is
// returned alongside the stats for the jobs that did resolve. A single job
// failure never aborts the run.
func (p *Pool) Run(ctx context.Context, jobs []Job) (RunStats, error) {
	workers := ClampWorkers(p.Workers)
	var logger zerolog.Logger
	if p.Logger != nil {
		logger = *p.Logger
	} else {
		logger = log.With().Str("component", "pool").Logger()
	}

	agg := NewAggregator(len(jobs))
	agg.Start()
	if len(jobs) == 0 {
		return agg.Finish(), ctx.Err()
	}

	queue := make(chan Job)
	var wg sync.WaitGroup
	var emit sync.Mutex

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				res := p.runJob(ctx, job)
				if res.Failed() {
					logger.Warn().
						Str("file", job.Source).
						Str("kind", string(res.Kind)).
						Err(res.Err).
						Msg("conversion failed")
				}
				// Record and notify under one lock: each snapshot must
				// reach the sink before a later one is recorded, or a
				// retaining sink could keep a stale snapshot as the
				// final event.
				emit.Lock()
				stats := agg.Record(res)
				p.notify(stats)
				emit.Unlock()
			}
		}()
	}

feed:
	for _, job := range jobs {
		// select alone is not enough: with a worker ready it may keep
		// picking the send case after cancellation.
		if ctx.Err() != nil {
			break
		}
		select {
		case queue <- job:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	return agg.Finish(), ctx.Err()
}

func (p *Pool) notify(stats RunStats) {
	if p.Sink == nil {
		return
	}
	p.Sink.Notify(ProgressEvent{
		Completed: stats.CompletedJobs,
		Failed:    stats.FailedJobs,
		Total:     stats.TotalJobs,
		Stats:     stats,
	})
}

// runJob converts one file: read, encode, write. Failures are folded into
// the JobResult, never returned.
func (p *Pool) runJob(ctx context.Context, job Job) JobResult {
	res := JobResult{Job: job}

	src, err := os.ReadFile(job.Source)
	if err != nil {
		res.Kind, res.Err = KindRead, err
		return res
	}
	res.OriginalBytes = int64(len(src))

	out, err := p.encode(ctx, src, job.Quality)
	if err != nil {
		if errors.Is(err, errJobTimeout) {
			res.Kind = KindTimeout
		} else {
			res.Kind = classifyEncodeErr(err)
		}
		res.Err = err
		return res
	}

	if err := os.MkdirAll(filepath.Dir(job.Dest), 0o755); err != nil {
		res.Kind, res.Err = KindWrite, err
		return res
	}
	if err := os.WriteFile(job.Dest, out, 0o644); err != nil {
		os.Remove(job.Dest)
		res.Kind, res.Err = KindWrite, err
		return res
	}

	res.ConvertedBytes = int64(len(out))
	return res
}

var errJobTimeout = errors.New("job exceeded configured timeout")

// encode invokes the Encoder, bounded by JobTimeout when configured. A hung
// encoder call cannot be interrupted, so on timeout its eventual result is
// discarded and the goroutine is left to finish on its own.
func (p *Pool) encode(ctx context.Context, src []byte, quality int) ([]byte, error) {
	if p.JobTimeout <= 0 {
		return p.Encoder.Encode(src, quality)
	}

	type outcome struct {
		out []byte
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := p.Encoder.Encode(src, quality)
		done <- outcome{out, err}
	}()

	timer := time.NewTimer(p.JobTimeout)
	defer timer.Stop()

	select {
	case o := <-done:
		return o.out, o.err
	case <-timer.C:
		return nil, errJobTimeout
	case <-ctx.Done():
		// Graceful drain still bounds the in-flight job by the timeout.
		select {
		case o := <-done:
			return o.out, o.err
		case <-timer.C:
			return nil, errJobTimeout
		}
	}
}
