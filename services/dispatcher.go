package services

import (
	"context"
	"fmt"

	"ebookgen/logger"
	"ebookgen/models"
)

// Enqueuer accepts background tasks without blocking.
type Enqueuer interface {
	EnqueueJob(task Task) error
}

// Dispatcher turns stored jobs into worker tasks.
type Dispatcher struct {
	worker  Enqueuer
	ebooks  *EbookGenerator
	prompts *PromptGenerator
	renders *RenderRunner
	tracker *Tracker
	log     *logger.Logger
}

func NewDispatcher(worker Enqueuer, ebooks *EbookGenerator, prompts *PromptGenerator, renders *RenderRunner, tracker *Tracker, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{
		worker:  worker,
		ebooks:  ebooks,
		prompts: prompts,
		renders: renders,
		tracker: tracker,
		log:     log.With("component", "Dispatcher"),
	}
}

// SubmitEbook queues generation for a pending ebook job. A job that cannot be
// queued is marked failed so it never stays pending.
func (d *Dispatcher) SubmitEbook(ctx context.Context, job models.Job) error {
	err := d.worker.EnqueueJob(Task{
		JobID: job.ID,
		Kind:  models.KindEbook,
		Run: func(ctx context.Context) {
			d.ebooks.Generate(ctx, job.ID, job.Topic, job.RequestedSections)
		},
	})
	return d.rejected(ctx, job, err)
}

// SubmitPrompts queues generation for a pending prompt pack job.
func (d *Dispatcher) SubmitPrompts(ctx context.Context, job models.Job) error {
	err := d.worker.EnqueueJob(Task{
		JobID: job.ID,
		Kind:  models.KindPrompts,
		Run: func(ctx context.Context) {
			d.prompts.Generate(ctx, job.ID, job.Topic, job.RequestedPrompts)
		},
	})
	return d.rejected(ctx, job, err)
}

// SubmitRender queues another render attempt for a completed job.
func (d *Dispatcher) SubmitRender(ctx context.Context, job models.Job) error {
	err := d.worker.EnqueueJob(Task{
		JobID: job.ID,
		Kind:  job.Kind,
		Run: func(ctx context.Context) {
			_ = d.renders.Run(ctx, &job)
		},
	})
	if err != nil {
		return fmt.Errorf("queue render of job %s: %w", job.ID.Hex(), err)
	}
	return nil
}

func (d *Dispatcher) rejected(ctx context.Context, job models.Job, err error) error {
	if err == nil {
		return nil
	}
	d.log.Warn("Job could not be queued", "job_id", job.ID.Hex(), "kind", job.Kind, "error", err)
	if ferr := d.tracker.Fail(ctx, job.ID, job.Kind, fmt.Errorf("not queued: %w", err)); ferr != nil {
		d.log.Error("Failed to mark unqueued job as failed", "job_id", job.ID.Hex(), "error", ferr)
	}
	return fmt.Errorf("queue job %s: %w", job.ID.Hex(), err)
}
