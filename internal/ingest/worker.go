package ingest

import (
	"context"
	"time"
)

// Backoff durations for the worker's poll loop, per spec.md §4.11: a short
// idle sleep when the queue is empty, a longer one after a claim error, and
// a sleep between consecutive successful claims to avoid a hot loop under
// sustained load.
const (
	idleBackoff  = 5 * time.Second
	errorBackoff = 60 * time.Second
	workBackoff  = 30 * time.Second
)

// Progress is a point-in-time snapshot of the ingestion queue.
type Progress struct {
	Total     int
	Processed int
	Failed    int
	Pending   int
}

// Counter reports aggregate paper counts; *repo.Repo satisfies it.
type Counter interface {
	CountPapers(ctx context.Context) (total, processed, failed, pending int, err error)
}

// Worker repeatedly claims and processes pending papers until stopped.
type Worker struct {
	pipeline *Pipeline
	claim    func(ctx context.Context) (paperID string, ok bool, err error)
	counter  Counter
	logger   logger

	idleBackoff  time.Duration
	errorBackoff time.Duration
	workBackoff  time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewWorker builds a Worker. claim is typically a thin adapter over
// repo.Repo.ClaimPendingPaper that returns just the paper's ID.
func NewWorker(pipeline *Pipeline, claim func(ctx context.Context) (string, bool, error), counter Counter, log logger) *Worker {
	return &Worker{
		pipeline:     pipeline,
		claim:        claim,
		counter:      counter,
		logger:       log,
		idleBackoff:  idleBackoff,
		errorBackoff: errorBackoff,
		workBackoff:  workBackoff,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Run polls until ctx is cancelled or Stop is called, processing one paper
// per successful claim.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		default:
		}

		paperID, ok, err := w.claim(ctx)
		if err != nil {
			w.logger.Error("claim failed", "error", err)
			if !sleep(ctx, w.stop, w.errorBackoff) {
				return
			}
			continue
		}
		if !ok {
			if !sleep(ctx, w.stop, w.idleBackoff) {
				return
			}
			continue
		}

		if err := w.pipeline.Process(ctx, paperID); err != nil {
			w.logger.Error("process failed", "paper_id", paperID, "error", err)
		}
		if !sleep(ctx, w.stop, w.workBackoff) {
			return
		}
	}
}

// Stop signals Run to return and blocks until it has.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}

// Progress reports the current queue snapshot.
func (w *Worker) Progress(ctx context.Context) (Progress, error) {
	total, processed, failed, pending, err := w.counter.CountPapers(ctx)
	if err != nil {
		return Progress{}, err
	}
	return Progress{Total: total, Processed: processed, Failed: failed, Pending: pending}, nil
}

func sleep(ctx context.Context, stop chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-stop:
		return false
	case <-timer.C:
		return true
	}
}
