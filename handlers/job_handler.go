package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ebookgen/apierr"
	"ebookgen/db"
	"ebookgen/logger"
	"ebookgen/models"
)

const (
	minSections     = 2
	maxSections     = 20
	defaultSections = 10
	minPrompts      = 1
	maxPrompts      = 200
	defaultPrompts  = 100
	listLimit       = 50
	requestTimeout  = 5 * time.Second
)

// JobService hands stored jobs to the background workers.
type JobService interface {
	SubmitEbook(ctx context.Context, job models.Job) error
	SubmitPrompts(ctx context.Context, job models.Job) error
	SubmitRender(ctx context.Context, job models.Job) error
}

// FileLocator maps a job to its rendered PDF on disk.
type FileLocator interface {
	EbookPDFPath(id string) string
	PromptsPDFPath(id string) string
}

// JobHandler handles HTTP requests for ebook and prompt pack jobs
type JobHandler struct {
	store db.JobStore
	jobs  JobService
	files FileLocator
	log   *logger.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(store db.JobStore, jobs JobService, files FileLocator, log *logger.Logger) *JobHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &JobHandler{store: store, jobs: jobs, files: files, log: log.With("component", "JobHandler")}
}

// Routes registers every endpoint on mux
func (jh *JobHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ebooks/generate", jh.CreateEbook)
	mux.HandleFunc("GET /api/ebooks", jh.ListEbooks)
	mux.HandleFunc("GET /api/ebooks/{id}", jh.GetEbook)
	mux.HandleFunc("GET /api/ebooks/{id}/download", jh.DownloadEbook)
	mux.HandleFunc("POST /api/ebooks/{id}/render", jh.Rerender)
	mux.HandleFunc("POST /api/prompts/generate", jh.CreatePrompts)
	mux.HandleFunc("GET /api/prompts/{id}", jh.GetPrompts)
	mux.HandleFunc("GET /api/prompts/{id}/download", jh.DownloadPrompts)
	mux.HandleFunc("GET /api/health", jh.Health)
}

// CreateEbookRequest represents the request body for POST /api/ebooks/generate
type CreateEbookRequest struct {
	Topic            string `json:"topic"`
	NumberOfSections *int   `json:"numberOfSections"`
}

type createEbookResponse struct {
	Message          string `json:"message"`
	EbookID          string `json:"ebookId"`
	Status           string `json:"status"`
	NumberOfSections int    `json:"numberOfSections"`
}

// CreateEbook handles POST /api/ebooks/generate - stores a pending job and queues it
func (jh *JobHandler) CreateEbook(w http.ResponseWriter, r *http.Request) {
	var req CreateEbookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jh.writeError(w, apierr.BadRequest("invalid_body", errors.New("invalid request body")))
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		jh.writeError(w, apierr.BadRequest("topic_required", errors.New("topic is required")))
		return
	}
	n := defaultSections
	if req.NumberOfSections != nil {
		n = clamp(*req.NumberOfSections, minSections, maxSections)
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	job := models.Job{
		Kind:              models.KindEbook,
		Topic:             topic,
		RequestedSections: n,
		Status:            models.StatusPending,
		Message:           "Ebook generation queued",
		Document: models.Document{
			Title:       "Ebook about " + topic,
			Description: "Generating...",
		},
	}
	id, err := jh.store.CreateJob(ctx, &job)
	if err != nil {
		jh.log.Error("Failed to insert job", "error", err)
		jh.writeError(w, err)
		return
	}
	if err := jh.jobs.SubmitEbook(ctx, job); err != nil {
		jh.writeError(w, apierr.Unavailable("queue_unavailable", err))
		return
	}

	writeJSON(w, http.StatusAccepted, createEbookResponse{
		Message:          "Ebook generation started",
		EbookID:          id.Hex(),
		Status:           job.Status,
		NumberOfSections: n,
	})
}

// CreatePromptsRequest represents the request body for POST /api/prompts/generate
type CreatePromptsRequest struct {
	Topic string `json:"topic"`
	Count *int   `json:"count"`
}

// CreatePrompts handles POST /api/prompts/generate
func (jh *JobHandler) CreatePrompts(w http.ResponseWriter, r *http.Request) {
	var req CreatePromptsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jh.writeError(w, apierr.BadRequest("invalid_body", errors.New("invalid request body")))
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		jh.writeError(w, apierr.BadRequest("topic_required", errors.New("topic is required")))
		return
	}
	n := defaultPrompts
	if req.Count != nil {
		n = clamp(*req.Count, minPrompts, maxPrompts)
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	job := models.Job{
		Kind:             models.KindPrompts,
		Topic:            topic,
		RequestedPrompts: n,
		Status:           models.StatusPending,
		Message:          "Prompt generation queued",
	}
	id, err := jh.store.CreateJob(ctx, &job)
	if err != nil {
		jh.log.Error("Failed to insert job", "error", err)
		jh.writeError(w, err)
		return
	}
	if err := jh.jobs.SubmitPrompts(ctx, job); err != nil {
		jh.writeError(w, apierr.Unavailable("queue_unavailable", err))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"message":  "Prompt generation started",
		"promptId": id.Hex(),
		"status":   job.Status,
		"count":    n,
	})
}

// GetEbook handles GET /api/ebooks/{id} - the polling endpoint
func (jh *JobHandler) GetEbook(w http.ResponseWriter, r *http.Request) {
	job, err := jh.loadJob(r, models.KindEbook)
	if err != nil {
		jh.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// GetPrompts handles GET /api/prompts/{id}
func (jh *JobHandler) GetPrompts(w http.ResponseWriter, r *http.Request) {
	job, err := jh.loadJob(r, models.KindPrompts)
	if err != nil {
		jh.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// ListEbooks handles GET /api/ebooks - newest 50 ebook jobs
func (jh *JobHandler) ListEbooks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	jobs, err := jh.store.ListJobs(ctx, models.KindEbook, listLimit)
	if err != nil {
		jh.log.Error("Failed to query jobs", "error", err)
		jh.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// DownloadEbook handles GET /api/ebooks/{id}/download
func (jh *JobHandler) DownloadEbook(w http.ResponseWriter, r *http.Request) {
	job, err := jh.loadJob(r, models.KindEbook)
	if err != nil {
		jh.writeError(w, err)
		return
	}
	jh.servePDF(w, r, job, jh.files.EbookPDFPath(job.ID.Hex()), job.Document.Title)
}

// DownloadPrompts handles GET /api/prompts/{id}/download
func (jh *JobHandler) DownloadPrompts(w http.ResponseWriter, r *http.Request) {
	job, err := jh.loadJob(r, models.KindPrompts)
	if err != nil {
		jh.writeError(w, err)
		return
	}
	jh.servePDF(w, r, job, jh.files.PromptsPDFPath(job.ID.Hex()), "AI Prompts "+job.Topic)
}

func (jh *JobHandler) servePDF(w http.ResponseWriter, r *http.Request, job *models.Job, path, name string) {
	if job.Render.Status != models.RenderDone {
		jh.writeError(w, apierr.NotFound("pdf_not_ready", errors.New("PDF has not been rendered")))
		return
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			jh.writeError(w, apierr.NotFound("pdf_not_found", errors.New("PDF file not found")))
			return
		}
		jh.writeError(w, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		jh.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, DownloadName(name)))
	http.ServeContent(w, r, "", info.ModTime(), f)
}

// Rerender handles POST /api/ebooks/{id}/render - queues another render attempt
func (jh *JobHandler) Rerender(w http.ResponseWriter, r *http.Request) {
	job, err := jh.loadJob(r, models.KindEbook)
	if err != nil {
		jh.writeError(w, err)
		return
	}
	if job.Status != models.StatusCompleted {
		jh.writeError(w, apierr.Conflict("not_completed", fmt.Errorf("job is %s", job.Status)))
		return
	}
	if job.Render.Status == models.RenderRunning {
		jh.writeError(w, apierr.Conflict("render_in_progress", errors.New("a render is already running")))
		return
	}
	if err := jh.jobs.SubmitRender(r.Context(), *job); err != nil {
		jh.writeError(w, apierr.Unavailable("queue_unavailable", err))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"message": "Render queued",
		"ebookId": job.ID.Hex(),
	})
}

// Health handles GET /api/health
func (jh *JobHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := jh.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unhealthy", "database": "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "database": "connected"})
}

func (jh *JobHandler) loadJob(r *http.Request, kind string) (*models.Job, error) {
	id, err := primitive.ObjectIDFromHex(r.PathValue("id"))
	if err != nil {
		return nil, apierr.BadRequest("invalid_id", errors.New("invalid job ID format"))
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	job, err := jh.store.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apierr.NotFound("not_found", errors.New("job not found"))
		}
		jh.log.Error("Failed to find job", "job_id", id.Hex(), "error", err)
		return nil, err
	}
	if job.Kind != kind {
		return nil, apierr.NotFound("not_found", errors.New("job not found"))
	}
	return job, nil
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9]`)

// DownloadName replaces every non-alphanumeric character with an underscore.
func DownloadName(title string) string {
	if title == "" {
		return "ebook"
	}
	return unsafeFilename.ReplaceAllString(title, "_")
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func (jh *JobHandler) writeError(w http.ResponseWriter, err error) {
	ae := apierr.From(err)
	if ae.Status >= http.StatusInternalServerError {
		jh.log.Error("Request failed", "status", ae.Status, "error", err)
	}
	writeJSON(w, ae.Status, map[string]string{"error": ae.Code, "details": ae.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
