package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Job is one generation request tracked through its lifecycle
type Job struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind              string             `bson:"kind" json:"kind"` // ebook, prompts
	Topic             string             `bson:"topic" json:"topic"`
	RequestedSections int                `bson:"requestedSections,omitempty" json:"requestedSections,omitempty"`
	RequestedPrompts  int                `bson:"requestedPrompts,omitempty" json:"requestedPrompts,omitempty"`
	Status            string             `bson:"status" json:"status"` // pending, generating, completed, failed
	Message           string             `bson:"message" json:"message"`
	Progress          Progress           `bson:"progress" json:"progress"`
	Document          Document           `bson:"document" json:"document"`
	Prompts           []string           `bson:"prompts,omitempty" json:"prompts,omitempty"`
	Render            RenderState        `bson:"render" json:"render"`
	Error             string             `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Progress counts batches and sections while a job is generating
type Progress struct {
	CurrentBatch      int `bson:"currentBatch" json:"currentBatch"`
	TotalBatches      int `bson:"totalBatches" json:"totalBatches"`
	SectionsGenerated int `bson:"sectionsGenerated" json:"sectionsGenerated"`
}

// RenderState is tracked apart from Status so a failed render never reopens a completed job
type RenderState struct {
	Status   string `bson:"status,omitempty" json:"status,omitempty"` // pending, rendering, done, failed
	PDFURL   string `bson:"pdfUrl,omitempty" json:"pdfUrl,omitempty"`
	CoverURL string `bson:"coverUrl,omitempty" json:"coverUrl,omitempty"`
	Error    string `bson:"error,omitempty" json:"error,omitempty"`
	Attempts int    `bson:"attempts,omitempty" json:"attempts,omitempty"`
}

// Job kinds
const (
	KindEbook   = "ebook"
	KindPrompts = "prompts"
)

// Valid statuses for a job
const (
	StatusPending    = "pending"
	StatusGenerating = "generating"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Valid render statuses
const (
	RenderPending = "pending"
	RenderRunning = "rendering"
	RenderDone    = "done"
	RenderFailed  = "failed"
)

// IsTerminal reports whether no further status transition is allowed.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}
