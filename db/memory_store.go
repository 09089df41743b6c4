package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ebookgen/models"
)

// MemoryStore is a JobStore for tests and for running without MongoDB.
// Jobs are copied on the way in and out so callers never share state.
type MemoryStore struct {
	jobs map[primitive.ObjectID]*models.Job
	mu   sync.RWMutex
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[primitive.ObjectID]*models.Job),
		now:  time.Now,
	}
}

func (s *MemoryStore) CreateJob(ctx context.Context, job *models.Job) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID.IsZero() {
		job.ID = primitive.NewObjectID()
	}
	now := s.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	s.jobs[job.ID] = cloneJob(job)
	return job.ID, nil
}

func (s *MemoryStore) UpdateJob(ctx context.Context, id primitive.ObjectID, patch models.JobPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if patch.Status != nil && models.IsTerminal(job.Status) {
		return ErrJobFinalized
	}
	if patch.Document != nil {
		doc := cloneDocument(*patch.Document)
		patch.Document = &doc
	}
	patch.Apply(job, s.now())
	return nil
}

func (s *MemoryStore) GetJob(ctx context.Context, id primitive.ObjectID) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(job), nil
}

func (s *MemoryStore) ListJobs(ctx context.Context, kind string, limit int64) ([]models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]models.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if kind != "" && j.Kind != kind {
			continue
		}
		jobs = append(jobs, *cloneJob(j))
	}
	sort.Slice(jobs, func(a, b int) bool {
		return jobs[a].CreatedAt.After(jobs[b].CreatedAt)
	})
	if limit > 0 && int64(len(jobs)) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func cloneJob(j *models.Job) *models.Job {
	c := *j
	c.Document = cloneDocument(j.Document)
	if j.Prompts != nil {
		c.Prompts = append([]string{}, j.Prompts...)
	}
	return &c
}

func cloneDocument(d models.Document) models.Document {
	if d.Sections == nil {
		return d
	}
	secs := make([]models.Section, len(d.Sections))
	for i, sec := range d.Sections {
		secs[i] = models.Section{
			Title:        sec.Title,
			Content:      sec.Content,
			Subheadings:  cloneStrings(sec.Subheadings),
			Examples:     cloneStrings(sec.Examples),
			KeyTakeaways: cloneStrings(sec.KeyTakeaways),
		}
	}
	d.Sections = secs
	return d
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}
