package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"ebookgen/models"
)

// MongoStore keeps jobs in a single MongoDB collection
type MongoStore struct {
	jobsCol *mongo.Collection
	now     func() time.Time
}

// NewMongoStore wraps the jobs collection
func NewMongoStore(jobsCollection *mongo.Collection) *MongoStore {
	return &MongoStore{jobsCol: jobsCollection, now: time.Now}
}

// CreateJob inserts the job, assigning an ID and timestamps when missing
func (s *MongoStore) CreateJob(ctx context.Context, job *models.Job) (primitive.ObjectID, error) {
	if job.ID.IsZero() {
		job.ID = primitive.NewObjectID()
	}
	now := s.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	result, err := s.jobsCol.InsertOne(ctx, job)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert job: %w", err)
	}
	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return job.ID, nil
	}
	return id, nil
}

// UpdateJob applies the patch with $set so sibling fields survive. Patches that
// change the status never match a job that is already completed or failed.
func (s *MongoStore) UpdateJob(ctx context.Context, id primitive.ObjectID, patch models.JobPatch) error {
	filter := bson.M{"_id": id}
	if patch.Status != nil {
		filter["status"] = bson.M{"$nin": bson.A{models.StatusCompleted, models.StatusFailed}}
	}
	update := bson.M{"$set": bson.M(patch.Fields(s.now()))}
	if inc := patch.Increments(); inc != nil {
		update["$inc"] = bson.M(inc)
	}

	result, err := s.jobsCol.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id.Hex(), err)
	}
	if result.MatchedCount > 0 {
		return nil
	}
	if patch.Status == nil {
		return ErrNotFound
	}

	n, err := s.jobsCol.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("count job %s: %w", id.Hex(), err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrJobFinalized
}

// GetJob fetches one job by ID
func (s *MongoStore) GetJob(ctx context.Context, id primitive.ObjectID) (*models.Job, error) {
	var job models.Job
	err := s.jobsCol.FindOne(ctx, bson.M{"_id": id}).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find job %s: %w", id.Hex(), err)
	}
	return &job, nil
}

// ListJobs returns the newest jobs first. An empty kind lists every kind.
func (s *MongoStore) ListJobs(ctx context.Context, kind string, limit int64) ([]models.Job, error) {
	filter := bson.M{}
	if kind != "" {
		filter["kind"] = kind
	}
	opts := options.Find().SetLimit(limit).SetSort(bson.M{"createdAt": -1})
	cursor, err := s.jobsCol.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer cursor.Close(ctx)

	jobs := []models.Job{}
	if err = cursor.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}
	return jobs, nil
}

// Ping checks the primary is reachable
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.jobsCol.Database().Client().Ping(ctx, readpref.Primary())
}
