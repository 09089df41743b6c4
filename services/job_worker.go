package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ebookgen/logger"
	"ebookgen/metrics"
)

var (
	ErrQueueFull     = errors.New("job queue is full")
	ErrWorkerStopped = errors.New("job worker is stopped")
)

// Task is one unit of background work, keyed by the job it advances.
type Task struct {
	JobID primitive.ObjectID
	Kind  string
	Run   func(ctx context.Context)
}

// JobWorker runs tasks from a bounded in-memory queue
type JobWorker struct {
	jobQueue   chan Task
	numWorkers int
	log        *logger.Logger

	mu       sync.RWMutex
	stopped  bool
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewJobWorker creates a new job worker with the specified number of worker goroutines
func NewJobWorker(queueSize int, numWorkers int, log *logger.Logger) *JobWorker {
	if log == nil {
		log = logger.Nop()
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &JobWorker{
		jobQueue:   make(chan Task, queueSize),
		numWorkers: numWorkers,
		log:        log.With("component", "JobWorker"),
	}
}

// Start launches the worker goroutines. Tasks run on a context that keeps
// ctx's values but not its cancellation: a started job always reaches a
// terminal status. Cancelling ctx stops the worker like Stop does.
func (jw *JobWorker) Start(ctx context.Context) {
	jw.log.Info(fmt.Sprintf("Starting %d job worker(s)", jw.numWorkers))

	taskCtx := context.WithoutCancel(ctx)
	for i := 1; i <= jw.numWorkers; i++ {
		jw.wg.Add(1)
		go jw.worker(taskCtx, i)
	}
	go func() {
		<-ctx.Done()
		jw.Stop()
	}()
}

// worker drains the queue until it is closed
func (jw *JobWorker) worker(ctx context.Context, id int) {
	defer jw.wg.Done()
	jw.log.Debug("Worker started", "worker", id)

	for task := range jw.jobQueue {
		metrics.QueueDepth.Dec()
		jw.run(ctx, id, task)
	}
	jw.log.Debug("Worker stopped", "worker", id)
}

func (jw *JobWorker) run(ctx context.Context, worker int, task Task) {
	log := jw.log.With("worker", worker, "job_id", task.JobID.Hex(), "kind", task.Kind)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Task panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	log.Info("Processing job")
	task.Run(ctx)
	log.Info("Finished job")
}

// EnqueueJob queues a task without blocking
func (jw *JobWorker) EnqueueJob(task Task) error {
	jw.mu.RLock()
	defer jw.mu.RUnlock()
	if jw.stopped {
		return ErrWorkerStopped
	}
	metrics.QueueDepth.Inc()
	select {
	case jw.jobQueue <- task:
		return nil
	default:
		metrics.QueueDepth.Dec()
		return ErrQueueFull
	}
}

// Stop refuses new tasks and waits until every queued and running task is done
func (jw *JobWorker) Stop() {
	jw.stopOnce.Do(func() {
		jw.log.Info("Stopping all workers...")
		jw.mu.Lock()
		jw.stopped = true
		close(jw.jobQueue)
		jw.mu.Unlock()
	})
	jw.wg.Wait()
}
