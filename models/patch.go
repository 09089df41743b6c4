package models

import "time"

// JobPatch is a partial update. Nil fields are left untouched by the store.
type JobPatch struct {
	Status   *string
	Message  *string
	Error    *string
	Progress *Progress

	CurrentBatch      *int
	TotalBatches      *int
	SectionsGenerated *int

	Document *Document
	Prompts  []string

	RenderStatus   *string
	RenderPDFURL   *string
	RenderCoverURL *string
	RenderError    *string
	RenderAttempt  bool
}

// Fields returns the patch as dotted document paths, the shape both stores apply.
func (p JobPatch) Fields(now time.Time) map[string]any {
	set := map[string]any{"updatedAt": now}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.Message != nil {
		set["message"] = *p.Message
	}
	if p.Error != nil {
		set["error"] = *p.Error
	}
	if p.Progress != nil {
		set["progress"] = *p.Progress
	}
	if p.CurrentBatch != nil {
		set["progress.currentBatch"] = *p.CurrentBatch
	}
	if p.TotalBatches != nil {
		set["progress.totalBatches"] = *p.TotalBatches
	}
	if p.SectionsGenerated != nil {
		set["progress.sectionsGenerated"] = *p.SectionsGenerated
	}
	if p.Document != nil {
		set["document"] = *p.Document
	}
	if p.Prompts != nil {
		set["prompts"] = p.Prompts
	}
	if p.RenderStatus != nil {
		set["render.status"] = *p.RenderStatus
	}
	if p.RenderPDFURL != nil {
		set["render.pdfUrl"] = *p.RenderPDFURL
	}
	if p.RenderCoverURL != nil {
		set["render.coverUrl"] = *p.RenderCoverURL
	}
	if p.RenderError != nil {
		set["render.error"] = *p.RenderError
	}
	return set
}

// Increments returns counters the patch bumps, applied with $inc by the Mongo store.
func (p JobPatch) Increments() map[string]any {
	if !p.RenderAttempt {
		return nil
	}
	return map[string]any{"render.attempts": 1}
}

// Apply merges the patch into j in place. Sibling fields are never cleared.
func (p JobPatch) Apply(j *Job, now time.Time) {
	j.UpdatedAt = now
	if p.Status != nil {
		j.Status = *p.Status
	}
	if p.Message != nil {
		j.Message = *p.Message
	}
	if p.Error != nil {
		j.Error = *p.Error
	}
	if p.Progress != nil {
		j.Progress = *p.Progress
	}
	if p.CurrentBatch != nil {
		j.Progress.CurrentBatch = *p.CurrentBatch
	}
	if p.TotalBatches != nil {
		j.Progress.TotalBatches = *p.TotalBatches
	}
	if p.SectionsGenerated != nil {
		j.Progress.SectionsGenerated = *p.SectionsGenerated
	}
	if p.Document != nil {
		j.Document = *p.Document
	}
	if p.Prompts != nil {
		j.Prompts = append([]string(nil), p.Prompts...)
	}
	if p.RenderStatus != nil {
		j.Render.Status = *p.RenderStatus
	}
	if p.RenderPDFURL != nil {
		j.Render.PDFURL = *p.RenderPDFURL
	}
	if p.RenderCoverURL != nil {
		j.Render.CoverURL = *p.RenderCoverURL
	}
	if p.RenderError != nil {
		j.Render.Error = *p.RenderError
	}
	if p.RenderAttempt {
		j.Render.Attempts++
	}
}

// Ptr returns a pointer to v, for building patches inline.
func Ptr[T any](v T) *T { return &v }
