package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ebookgen/logger"
	"ebookgen/metrics"
	"ebookgen/models"
	"ebookgen/recovery"
	"ebookgen/sanitize"
)

// BatchSize is the number of sections requested per producer call.
const BatchSize = 5

var errNoSections = errors.New("no sections were generated after all batches")

// PlanBatches splits a requested section count into batch sizes of at most BatchSize.
func PlanBatches(requested int) []int {
	if requested <= 0 {
		return nil
	}
	sizes := make([]int, 0, (requested+BatchSize-1)/BatchSize)
	for left := requested; left > 0; left -= BatchSize {
		sizes = append(sizes, min(left, BatchSize))
	}
	return sizes
}

// EbookGenerator drives one ebook job from topic to completed, rendered document.
// Batches run strictly in order because every prompt lists the titles accepted so far.
type EbookGenerator struct {
	producer TextProducer
	tracker  *Tracker
	renders  *RenderRunner
	log      *logger.Logger
}

func NewEbookGenerator(producer TextProducer, tracker *Tracker, renders *RenderRunner, log *logger.Logger) *EbookGenerator {
	if log == nil {
		log = logger.Nop()
	}
	return &EbookGenerator{
		producer: producer,
		tracker:  tracker,
		renders:  renders,
		log:      log.With("component", "EbookGenerator"),
	}
}

// Generate runs the job to a terminal status. The outcome is only observable
// through the persisted job.
func (g *EbookGenerator) Generate(ctx context.Context, jobID primitive.ObjectID, topic string, requested int) {
	log := g.log.With("job_id", jobID.Hex(), "topic", topic)
	var progress models.Progress

	defer func() {
		if r := recover(); r != nil {
			log.Error("Generation panicked", "panic", r, "stack", string(debug.Stack()))
			g.fail(ctx, log, jobID, fmt.Errorf("internal error: %v", r), progress)
		}
	}()

	doc, err := g.run(ctx, log, jobID, topic, requested, &progress)
	if err != nil {
		g.fail(ctx, log, jobID, err, progress)
		return
	}

	job := &models.Job{ID: jobID, Kind: models.KindEbook, Topic: topic, Status: models.StatusCompleted, Document: doc}
	if err := g.renders.Run(ctx, job); err != nil {
		log.Warn("Ebook completed without a rendered file", "error", err)
	}
}

func (g *EbookGenerator) run(ctx context.Context, log *logger.Logger, jobID primitive.ObjectID, topic string, requested int, progress *models.Progress) (models.Document, error) {
	batches := PlanBatches(requested)
	progress.TotalBatches = len(batches)
	if err := g.tracker.Start(ctx, jobID, len(batches)); err != nil {
		return models.Document{}, err
	}
	log.Info("Generation started", "requested_sections", requested, "batches", len(batches))

	var sections []models.Section
	for i, size := range batches {
		need := min(size, requested-len(sections))
		if need > 0 {
			got := g.batch(ctx, log, topic, sections, need, i+1)
			sections = append(sections, got...)
		}

		metrics.BatchesProcessed.Inc()
		progress.CurrentBatch = i + 1
		progress.SectionsGenerated = len(sections)
		msg := fmt.Sprintf("Generated batch %d/%d (%d sections so far)", i+1, len(batches), len(sections))
		if err := g.tracker.BatchDone(ctx, jobID, i+1, len(sections), msg); err != nil {
			return models.Document{}, err
		}
	}

	if len(sections) == 0 {
		return models.Document{}, errNoSections
	}

	title, description := g.meta(ctx, log, topic, sections)
	doc := sanitize.Sanitize(models.Document{
		Title:       title,
		Description: description,
		Sections:    sections,
	})
	doc.WordCount = models.CountWords(doc.Sections)

	if err := g.tracker.Complete(ctx, jobID, doc); err != nil {
		return models.Document{}, err
	}
	log.Info("Generation completed", "sections", len(doc.Sections), "word_count", doc.WordCount)
	return doc, nil
}

// batch asks for need more sections and returns at most need of them.
// Canned recovery output is dropped since it says nothing about the topic.
func (g *EbookGenerator) batch(ctx context.Context, log *logger.Logger, topic string, have []models.Section, need, number int) []models.Section {
	raw := g.producer.Generate(ctx, batchPrompt(topic, have, need))

	doc, err := recovery.ParseStrict(raw)
	if err == nil {
		metrics.RecoveryTier.WithLabelValues("strict").Inc()
		return capSections(doc.Sections, need)
	}

	res := recovery.Analyze(raw)
	metrics.RecoveryTier.WithLabelValues(res.Tier.String()).Inc()
	if res.Tier == recovery.TierCanned {
		log.Warn("Batch produced nothing usable", "batch", number, "parse_error", err, "response_len", len(raw))
		return nil
	}
	log.Warn("Batch recovered from malformed output", "batch", number, "tier", res.Tier.String(), "sections", len(res.Document.Sections))
	return capSections(res.Document.Sections, need)
}

func capSections(secs []models.Section, n int) []models.Section {
	if len(secs) > n {
		return secs[:n]
	}
	return secs
}

// meta asks for a title and description, falling back to a template.
func (g *EbookGenerator) meta(ctx context.Context, log *logger.Logger, topic string, sections []models.Section) (string, string) {
	raw := g.producer.Generate(ctx, metaPrompt(topic, sections))
	title, description, err := recovery.ParseMeta(raw)
	if err != nil {
		log.Warn("Could not parse title and description, using template", "error", err)
		return "Guide to " + topic, "An ebook about " + topic
	}
	if description == "" {
		description = "An ebook about " + topic
	}
	return title, description
}

func (g *EbookGenerator) fail(ctx context.Context, log *logger.Logger, jobID primitive.ObjectID, cause error, progress models.Progress) {
	log.Error("Generation failed",
		"error", cause,
		"current_batch", progress.CurrentBatch,
		"total_batches", progress.TotalBatches,
		"sections_generated", progress.SectionsGenerated,
	)
	if err := g.tracker.Fail(ctx, jobID, models.KindEbook, cause); err != nil {
		log.Error("Failed to mark job as failed", "error", err)
	}
}

func quotedTitles(sections []models.Section) string {
	titles := make([]string, len(sections))
	for i, s := range sections {
		titles[i] = fmt.Sprintf("%q", s.Title)
	}
	return strings.Join(titles, ", ")
}

func batchPrompt(topic string, have []models.Section, need int) string {
	return fmt.Sprintf(`Topic: %q
Existing Section Titles: [%s]

Generate the next %d sections for this ebook.

RULES:
- Output ONLY a valid JSON object.
- The JSON object must have a single key: "sections".
- "sections" is an array of section objects.
- Each section object must have keys: "title", "content", "subheadings", "examples", "keyTakeaways".
- Do not number the "title" string and do not repeat an existing title.
- A section "title" must be concise (under 10 words) and describe the section's content.
- "content" must be 800-1200 words of detailed, expert-level content.

JSON OUTPUT:`, topic, quotedTitles(have), need)
}

func metaPrompt(topic string, sections []models.Section) string {
	return fmt.Sprintf(`Generate a SEO-friendly title and a compelling description for an ebook about %q with sections on: %s. Respond with a JSON object containing "title" and "description".`,
		topic, quotedTitles(sections))
}
