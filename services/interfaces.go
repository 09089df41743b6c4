package services

import (
	"context"

	"ebookgen/models"
	"ebookgen/render"
)

// TextProducer returns generated text for a prompt. Implementations retry
// internally and fall back to placeholder text instead of failing.
type TextProducer interface {
	Generate(ctx context.Context, prompt string) string
}

// Renderer turns finished jobs into downloadable files.
type Renderer interface {
	RenderEbook(ctx context.Context, id string, doc models.Document) (render.Artifacts, error)
	RenderPrompts(ctx context.Context, id, topic string, prompts []string) (render.Artifacts, error)
}
