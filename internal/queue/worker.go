package queue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/codebuildervaibhav/quizsplice/internal/logger"
	"github.com/codebuildervaibhav/quizsplice/internal/types"
)

// JobRunner executes the pipeline for one job, reporting each stage it enters.
type JobRunner interface {
	RunJob(ctx context.Context, job Job, progress func(status string)) (outputURL string, err error)
}

// WorkerPool manages a pool of workers processing pipeline jobs
type WorkerPool struct {
	broker      Broker
	tracker     *Tracker
	runner      JobRunner
	workerCount int
	log         *logger.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workerCount int, broker Broker, tracker *Tracker, runner JobRunner, log *logger.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &WorkerPool{
		broker:      broker,
		tracker:     tracker,
		runner:      runner,
		workerCount: workerCount,
		log:         log.With("component", "WorkerPool"),
	}
}

// Start initializes all workers
func (wp *WorkerPool) Start(ctx context.Context) {
	ctx, wp.cancel = context.WithCancel(ctx)
	wp.log.Info("starting worker pool", "workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Stop cancels running jobs and waits for every worker to return.
func (wp *WorkerPool) Stop() {
	if wp.cancel != nil {
		wp.cancel()
	}
	wp.wg.Wait()
	wp.log.Info("worker pool stopped")
}

// Enqueue registers a job with the tracker and hands it to the broker
func (wp *WorkerPool) Enqueue(ctx context.Context, submissionID string, insertAtMs *int64) (*Job, error) {
	job := NewJob(submissionID, insertAtMs)
	wp.tracker.Put(job)

	if err := wp.broker.Publish(ctx, job); err != nil {
		wp.tracker.Update(job.ID, func(j *Job) {
			j.Status = types.StatusFailed
			j.Error = fmt.Sprintf("enqueue failed: %v", err)
		})
		return nil, err
	}

	wp.log.Info("job enqueued", "job", job.ID, "submission", submissionID)
	return job, nil
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log := wp.log.With("worker", id)
	log.Debug("worker started")

	for {
		job, err := wp.broker.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrBrokerClosed) {
				return
			}
			log.Error("failed to read job", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		wp.process(ctx, log, job)
	}
}

// process runs one job with panic recovery
func (wp *WorkerPool) process(ctx context.Context, log *logger.Logger, job *Job) {
	log = log.With("job", job.ID, "submission", job.SubmissionID)

	// jobs published by another process are unknown to this tracker
	if _, ok := wp.tracker.Get(job.ID); !ok {
		wp.tracker.Put(job)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic processing job", "panic", r, "stack", string(debug.Stack()))
			wp.fail(job.ID, fmt.Errorf("worker panic: %v", r))
		}
	}()

	start := time.Now()
	log.Info("processing job")

	outputURL, err := wp.runner.RunJob(ctx, *job, func(status string) {
		log.Info("job stage", "status", status)
		wp.tracker.SetStatus(job.ID, status)
	})
	if err != nil {
		log.Error("job failed", "error", err, "elapsed", time.Since(start).String())
		wp.fail(job.ID, err)
		return
	}

	wp.tracker.Update(job.ID, func(j *Job) {
		j.Status = types.StatusDone
		j.Error = ""
		j.OutputURL = outputURL
	})
	log.Info("job completed", "output", outputURL, "elapsed", time.Since(start).String())
}

func (wp *WorkerPool) fail(id string, err error) {
	wp.tracker.Update(id, func(j *Job) {
		j.Status = types.StatusFailed
		j.Error = err.Error()
	})
}
