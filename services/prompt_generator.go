package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ebookgen/logger"
	"ebookgen/metrics"
	"ebookgen/models"
	"ebookgen/recovery"
)

var errNoPrompts = errors.New("no prompts could be extracted from the response")

// PromptGenerator builds a prompt pack for a topic with a single producer call.
type PromptGenerator struct {
	producer TextProducer
	tracker  *Tracker
	renders  *RenderRunner
	log      *logger.Logger
}

func NewPromptGenerator(producer TextProducer, tracker *Tracker, renders *RenderRunner, log *logger.Logger) *PromptGenerator {
	if log == nil {
		log = logger.Nop()
	}
	return &PromptGenerator{
		producer: producer,
		tracker:  tracker,
		renders:  renders,
		log:      log.With("component", "PromptGenerator"),
	}
}

func (g *PromptGenerator) Generate(ctx context.Context, jobID primitive.ObjectID, topic string, count int) {
	log := g.log.With("job_id", jobID.Hex(), "topic", topic)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Prompt generation panicked", "panic", r, "stack", string(debug.Stack()))
			g.fail(ctx, log, jobID, fmt.Errorf("internal error: %v", r))
		}
	}()

	prompts, err := g.run(ctx, jobID, topic, count)
	if err != nil {
		g.fail(ctx, log, jobID, err)
		return
	}
	log.Info("Prompt pack completed", "prompts", len(prompts))

	job := &models.Job{ID: jobID, Kind: models.KindPrompts, Topic: topic, Status: models.StatusCompleted, Prompts: prompts}
	if err := g.renders.Run(ctx, job); err != nil {
		log.Warn("Prompt pack completed without a rendered file", "error", err)
	}
}

func (g *PromptGenerator) run(ctx context.Context, jobID primitive.ObjectID, topic string, count int) ([]string, error) {
	if err := g.tracker.Start(ctx, jobID, 1); err != nil {
		return nil, err
	}
	raw := g.producer.Generate(ctx, promptPackPrompt(topic, count))
	metrics.BatchesProcessed.Inc()

	prompts, err := recovery.ParsePrompts(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNoPrompts, err)
	}
	if len(prompts) == 0 {
		return nil, errNoPrompts
	}
	if len(prompts) > count {
		prompts = prompts[:count]
	}
	if err := g.tracker.CompletePrompts(ctx, jobID, prompts); err != nil {
		return nil, err
	}
	return prompts, nil
}

func (g *PromptGenerator) fail(ctx context.Context, log *logger.Logger, jobID primitive.ObjectID, cause error) {
	log.Error("Prompt generation failed", "error", cause)
	if err := g.tracker.Fail(ctx, jobID, models.KindPrompts, cause); err != nil {
		log.Error("Failed to mark job as failed", "error", err)
	}
}

func promptPackPrompt(topic string, count int) string {
	return fmt.Sprintf(`You are an expert prompt generator.
Your task is to generate %d diverse and high-quality AI prompts about the topic: %q.

The prompts should be in the style of the following examples:
- "Create a viral Instagram Reel script teaching how to grow a faceless page from scratch. Include hook + steps + CTA."
- "Explain why faceless pages grow faster. Give 5 psychological reasons."
- "List 10 content ideas for a faceless page in the {insert niche} niche that can grow to 10k followers fast."

RULES:
- Output ONLY a valid JSON object.
- The JSON object must have a single key: "prompts".
- "prompts" must be an array of %d strings.
- Each string in the array is a unique and creative prompt.
- Do not number the prompts in the output.`, count, topic, count)
}
