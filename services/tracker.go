package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ebookgen/db"
	"ebookgen/logger"
	"ebookgen/metrics"
	"ebookgen/models"
	"ebookgen/render"
)

// Tracker records job lifecycle state. Every write is a partial patch, so a
// progress update never clobbers the document or render fields.
type Tracker struct {
	store db.JobStore
	log   *logger.Logger
}

func NewTracker(store db.JobStore, log *logger.Logger) *Tracker {
	if log == nil {
		log = logger.Nop()
	}
	return &Tracker{store: store, log: log.With("component", "Tracker")}
}

// Start moves the job to generating and fixes totalBatches for its lifetime.
func (t *Tracker) Start(ctx context.Context, id primitive.ObjectID, totalBatches int) error {
	err := t.store.UpdateJob(ctx, id, models.JobPatch{
		Status:   models.Ptr(models.StatusGenerating),
		Message:  models.Ptr(fmt.Sprintf("Generating content in %d batch(es)", totalBatches)),
		Progress: &models.Progress{TotalBatches: totalBatches},
	})
	if err != nil {
		return fmt.Errorf("start job %s: %w", id.Hex(), err)
	}
	return nil
}

// BatchDone records a finished batch. currentBatch is 1-based.
func (t *Tracker) BatchDone(ctx context.Context, id primitive.ObjectID, currentBatch, sectionsGenerated int, message string) error {
	err := t.store.UpdateJob(ctx, id, models.JobPatch{
		CurrentBatch:      models.Ptr(currentBatch),
		SectionsGenerated: models.Ptr(sectionsGenerated),
		Message:           models.Ptr(message),
	})
	if err != nil {
		return fmt.Errorf("record batch %d of job %s: %w", currentBatch, id.Hex(), err)
	}
	return nil
}

// Complete stores the final document and closes the job.
func (t *Tracker) Complete(ctx context.Context, id primitive.ObjectID, doc models.Document) error {
	err := t.store.UpdateJob(ctx, id, models.JobPatch{
		Status:            models.Ptr(models.StatusCompleted),
		Message:           models.Ptr("Ebook generated successfully"),
		Document:          &doc,
		SectionsGenerated: models.Ptr(len(doc.Sections)),
		RenderStatus:      models.Ptr(models.RenderPending),
	})
	if err != nil {
		return fmt.Errorf("complete job %s: %w", id.Hex(), err)
	}
	metrics.JobsFinished.WithLabelValues(models.KindEbook, models.StatusCompleted).Inc()
	metrics.SectionsPerJob.Observe(float64(len(doc.Sections)))
	return nil
}

// CompletePrompts stores a generated prompt pack and closes the job.
func (t *Tracker) CompletePrompts(ctx context.Context, id primitive.ObjectID, prompts []string) error {
	err := t.store.UpdateJob(ctx, id, models.JobPatch{
		Status:       models.Ptr(models.StatusCompleted),
		Message:      models.Ptr(fmt.Sprintf("Generated %d prompts", len(prompts))),
		Prompts:      prompts,
		Progress:     &models.Progress{CurrentBatch: 1, TotalBatches: 1},
		RenderStatus: models.Ptr(models.RenderPending),
	})
	if err != nil {
		return fmt.Errorf("complete job %s: %w", id.Hex(), err)
	}
	metrics.JobsFinished.WithLabelValues(models.KindPrompts, models.StatusCompleted).Inc()
	return nil
}

// Fail closes the job with cause and resets its progress counters.
func (t *Tracker) Fail(ctx context.Context, id primitive.ObjectID, kind string, cause error) error {
	err := t.store.UpdateJob(ctx, id, models.JobPatch{
		Status:   models.Ptr(models.StatusFailed),
		Message:  models.Ptr("Generation failed"),
		Error:    models.Ptr(cause.Error()),
		Progress: &models.Progress{},
	})
	if err != nil {
		return fmt.Errorf("fail job %s: %w", id.Hex(), err)
	}
	metrics.JobsFinished.WithLabelValues(kind, models.StatusFailed).Inc()
	return nil
}

// RenderStarted marks a render attempt as running and counts it.
func (t *Tracker) RenderStarted(ctx context.Context, id primitive.ObjectID) error {
	err := t.store.UpdateJob(ctx, id, models.JobPatch{
		RenderStatus:  models.Ptr(models.RenderRunning),
		RenderError:   models.Ptr(""),
		RenderAttempt: true,
	})
	if err != nil {
		return fmt.Errorf("start render of job %s: %w", id.Hex(), err)
	}
	return nil
}

func (t *Tracker) RenderDone(ctx context.Context, id primitive.ObjectID, art render.Artifacts) error {
	patch := models.JobPatch{
		RenderStatus: models.Ptr(models.RenderDone),
		RenderPDFURL: models.Ptr(art.PDFURL),
	}
	if art.CoverURL != "" {
		patch.RenderCoverURL = models.Ptr(art.CoverURL)
	}
	if err := t.store.UpdateJob(ctx, id, patch); err != nil {
		return fmt.Errorf("finish render of job %s: %w", id.Hex(), err)
	}
	return nil
}

func (t *Tracker) RenderFailed(ctx context.Context, id primitive.ObjectID, cause error) error {
	err := t.store.UpdateJob(ctx, id, models.JobPatch{
		RenderStatus: models.Ptr(models.RenderFailed),
		RenderError:  models.Ptr(cause.Error()),
	})
	if err != nil {
		return fmt.Errorf("record render failure of job %s: %w", id.Hex(), err)
	}
	return nil
}
