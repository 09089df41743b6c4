package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ebookgen/models"
)

var (
	ErrNotFound     = errors.New("job not found")
	ErrJobFinalized = errors.New("job already reached a terminal status")
)

// JobStore persists jobs. UpdateJob merges the patch into the stored job and must
// never clobber fields the patch leaves unset.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.Job) (primitive.ObjectID, error)
	UpdateJob(ctx context.Context, id primitive.ObjectID, patch models.JobPatch) error
	GetJob(ctx context.Context, id primitive.ObjectID) (*models.Job, error)
	ListJobs(ctx context.Context, kind string, limit int64) ([]models.Job, error)
	Ping(ctx context.Context) error
}
