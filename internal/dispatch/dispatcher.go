package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/dennisimoo/DiscordMessageMigrator/internal/platform"
)

// Defaults. The send rate sits at ~90% of the 5 ops/s ceiling observed on
// Discord so a well-behaved run never trips the platform limiter at all.
const (
	DefaultRate        = 4.5
	DefaultMaxAttempts = 3
	defaultBackoffBase = 500 * time.Millisecond
	defaultBackoffCap  = 8 * time.Second
	defaultOpTimeout   = 15 * time.Second
	defaultRetryMargin = 250 * time.Millisecond
)

// Progress is a rolling snapshot reported after every settled job.
type Progress struct {
	Completed int
	Total     int
	Elapsed   time.Duration
	Remaining time.Duration // estimate, not a commitment
	Rate      float64       // actual ops/s so far
}

// FailedJob pairs a job with its final error after the retry budget ran out.
type FailedJob struct {
	Job Job
	Err error
}

// Result summarizes one dispatcher run. Every job ends in exactly one of:
// counted in Succeeded, recorded in Failed, or untried because the run
// aborted first.
type Result struct {
	Succeeded int
	Failed    []FailedJob
	Aborted   bool
}

// Options tunes a Dispatcher. Zero values take the defaults above.
type Options struct {
	Rate        float64 // target ops/s, strictly below the platform ceiling
	MaxAttempts int     // transient-failure budget per job
	BackoffBase time.Duration
	BackoffCap  time.Duration
	OpTimeout   time.Duration // per network operation, distinct from pacing
	RetryMargin time.Duration // safety margin on top of platform retry-after
	OnProgress  func(Progress)
	OnJobError  func(Job, error)
}

// Dispatcher executes an ordered job batch against one remote channel
// while honoring a global throughput ceiling. It is single-threaded on
// purpose: the platform limiter is a leaky bucket keyed by route, so
// concurrent sends buy throttling responses, not throughput, and strict
// serialization is what makes the send-order guarantee hold.
type Dispatcher struct {
	cap       platform.Capability
	channelID string
	opts      Options
}

// New creates a Dispatcher bound to one channel for the lifetime of its runs.
func New(cap platform.Capability, channelID string, opts Options) *Dispatcher {
	if opts.Rate <= 0 {
		opts.Rate = DefaultRate
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultBackoffBase
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = defaultBackoffCap
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = defaultOpTimeout
	}
	if opts.RetryMargin <= 0 {
		opts.RetryMargin = defaultRetryMargin
	}
	return &Dispatcher{cap: cap, channelID: channelID, opts: opts}
}

type jobStatus int

const (
	jobSucceeded jobStatus = iota
	jobFailed
	jobUnauthorized
	jobCancelled
)

// Run consumes jobs strictly in order. Cancellation is observed at every
// job boundary and at every pacing, backoff or throttle wait; completed
// work is never rolled back.
func (d *Dispatcher) Run(ctx context.Context, jobs []Job) Result {
	var res Result
	total := len(jobs)
	// Burst 1 keeps consecutive dispatches at least 1/Rate apart.
	limiter := rate.NewLimiter(rate.Limit(d.opts.Rate), 1)
	start := time.Now()

	slog.Info("dispatch: run started", "jobs", total, "rate", d.opts.Rate, "channel", d.channelID)

	for i := range jobs {
		job := &jobs[i]
		switch d.runJob(ctx, limiter, job) {
		case jobSucceeded:
			res.Succeeded++
		case jobFailed:
			res.Failed = append(res.Failed, FailedJob{Job: *job, Err: job.LastErr})
			if d.opts.OnJobError != nil {
				d.opts.OnJobError(*job, job.LastErr)
			}
		case jobUnauthorized:
			res.Aborted = true
			slog.Error("dispatch: unauthorized, aborting run", "seq", job.Seq, "op", job.Op.String())
			return res
		case jobCancelled:
			res.Aborted = true
			slog.Info("dispatch: run cancelled", "completed", res.Succeeded+len(res.Failed), "total", total)
			return res
		}

		d.reportProgress(res.Succeeded+len(res.Failed), total, start)
	}

	slog.Info("dispatch: run finished",
		"succeeded", res.Succeeded, "failed", len(res.Failed), "elapsed", time.Since(start))
	return res
}

// runJob drives one job to a terminal status. Throttling retries do not
// consume the job's attempt budget; only transient failures do. Every
// attempt, retries included, passes through the limiter so a short
// backoff or retry-after can never push the run past the ceiling.
func (d *Dispatcher) runJob(ctx context.Context, limiter *rate.Limiter, job *Job) jobStatus {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.opts.BackoffBase
	bo.MaxInterval = d.opts.BackoffCap
	bo.MaxElapsedTime = 0

	for {
		if err := limiter.Wait(ctx); err != nil {
			return jobCancelled
		}
		err := d.attempt(ctx, job)
		if err == nil {
			return jobSucceeded
		}
		if ctx.Err() != nil {
			return jobCancelled
		}

		var rl *platform.RateLimitedError
		if errors.As(err, &rl) {
			wait := rl.RetryAfter + d.opts.RetryMargin
			slog.Warn("dispatch: rate limited", "seq", job.Seq, "wait", wait)
			if !sleepCtx(ctx, wait) {
				return jobCancelled
			}
			continue
		}
		if errors.Is(err, platform.ErrUnauthorized) {
			job.LastErr = err
			return jobUnauthorized
		}

		job.Attempts++
		job.LastErr = err
		if job.Attempts >= d.opts.MaxAttempts {
			slog.Error("dispatch: job failed", "seq", job.Seq, "op", job.Op.String(),
				"attempts", job.Attempts, "error", err)
			return jobFailed
		}
		wait := bo.NextBackOff()
		slog.Warn("dispatch: transient failure, retrying",
			"seq", job.Seq, "attempt", job.Attempts, "backoff", wait, "error", err)
		if !sleepCtx(ctx, wait) {
			return jobCancelled
		}
	}
}

// attempt performs a single network operation under its own timeout.
func (d *Dispatcher) attempt(ctx context.Context, job *Job) error {
	opCtx, cancel := context.WithTimeout(ctx, d.opts.OpTimeout)
	defer cancel()

	switch job.Op {
	case OpDelete:
		err := d.cap.Delete(opCtx, d.channelID, job.RemoteID)
		if errors.Is(err, platform.ErrNotFound) {
			// Already gone; deletion is idempotent.
			return nil
		}
		return err
	default:
		_, err := d.cap.Send(opCtx, d.channelID, job.Payload)
		return err
	}
}

func (d *Dispatcher) reportProgress(completed, total int, start time.Time) {
	if d.opts.OnProgress == nil {
		return
	}
	elapsed := time.Since(start)
	actual := 0.0
	if elapsed > 0 {
		actual = float64(completed) / elapsed.Seconds()
	}
	remaining := time.Duration(0)
	if completed < total && actual > 0 {
		remaining = time.Duration(float64(total-completed) / actual * float64(time.Second))
	}
	d.opts.OnProgress(Progress{
		Completed: completed,
		Total:     total,
		Elapsed:   elapsed,
		Remaining: remaining,
		Rate:      actual,
	})
}

// sleepCtx waits for d or until ctx is cancelled. Returns false on cancel.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
