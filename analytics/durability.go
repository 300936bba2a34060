package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/GoCodeAlone/cellplacement/scale"
)

// DurabilityJob periodically snapshots a Recorder into a PGStore using a
// bounded worker pool, so a slow or momentarily unavailable database never
// blocks the request path that calls Recorder.RecordPlacement.
type DurabilityJob struct {
	recorder *Recorder
	store    *PGStore
	pool     *scale.WorkerPool
	interval time.Duration
	log      *slog.Logger

	stop chan struct{}
}

// NewDurabilityJob wires a Recorder to a PGStore via a worker pool sized for
// a single periodic task; MaxWorkers stays small since persistence is not on
// the request hot path and never needs to scale with request volume.
func NewDurabilityJob(recorder *Recorder, store *PGStore, interval time.Duration, log *slog.Logger) *DurabilityJob {
	if log == nil {
		log = slog.Default()
	}
	pool := scale.NewWorkerPool(scale.WorkerPoolConfig{
		MinWorkers: 1,
		MaxWorkers: 2,
		QueueSize:  4,
	})
	return &DurabilityJob{
		recorder: recorder,
		store:    store,
		pool:     pool,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
	}
}

// Start launches the worker pool and a ticker goroutine that submits one
// persist task per interval. Call Stop to shut both down.
func (j *DurabilityJob) Start(ctx context.Context) error {
	if err := j.pool.Start(ctx); err != nil {
		return err
	}

	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				snap := j.recorder.Snapshot()
				taskErr := j.pool.Submit(scale.Task{
					ID:      "analytics-snapshot",
					Execute: func(ctx context.Context) error { return j.store.Persist(ctx, snap) },
				})
				if taskErr != nil {
					j.log.Error("submit analytics snapshot task", "error", taskErr)
				}
			case <-j.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	go j.drainResults()

	return nil
}

func (j *DurabilityJob) drainResults() {
	for res := range j.pool.Results() {
		if res.Err != nil {
			j.log.Error("persist analytics snapshot", "error", res.Err, "duration", res.Duration)
		}
	}
}

// Stop halts the ticker and drains the worker pool.
func (j *DurabilityJob) Stop() error {
	close(j.stop)
	return j.pool.Stop()
}
