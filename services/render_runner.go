package services

import (
	"context"
	"fmt"

	"ebookgen/logger"
	"ebookgen/models"
	"ebookgen/render"
)

// RenderRunner renders a completed job and records the outcome in the job's
// render state. The job status itself is never changed here.
type RenderRunner struct {
	tracker  *Tracker
	renderer Renderer
	log      *logger.Logger
}

func NewRenderRunner(tracker *Tracker, renderer Renderer, log *logger.Logger) *RenderRunner {
	if log == nil {
		log = logger.Nop()
	}
	return &RenderRunner{tracker: tracker, renderer: renderer, log: log.With("component", "RenderRunner")}
}

// Run renders job. Failures are persisted on the job and returned.
func (rr *RenderRunner) Run(ctx context.Context, job *models.Job) error {
	log := rr.log.With("job_id", job.ID.Hex(), "kind", job.Kind)
	if job.Status != models.StatusCompleted {
		return fmt.Errorf("job %s is %s, only completed jobs are rendered", job.ID.Hex(), job.Status)
	}
	if err := rr.tracker.RenderStarted(ctx, job.ID); err != nil {
		return err
	}

	var art render.Artifacts
	var err error
	switch job.Kind {
	case models.KindPrompts:
		art, err = rr.renderer.RenderPrompts(ctx, job.ID.Hex(), job.Topic, job.Prompts)
	default:
		art, err = rr.renderer.RenderEbook(ctx, job.ID.Hex(), job.Document)
	}
	if err == nil {
		err = rr.tracker.RenderDone(ctx, job.ID, art)
	}
	if err != nil {
		log.Error("Render failed", "error", err)
		if ferr := rr.tracker.RenderFailed(ctx, job.ID, err); ferr != nil {
			log.Error("Failed to record render failure", "error", ferr)
		}
		return err
	}
	log.Info("Render finished")
	return nil
}
