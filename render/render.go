// Package render turns finished jobs into files under the public output
// directory: a PDF per job and a PNG cover per ebook.
package render

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"ebookgen/config"
	"ebookgen/logger"
	"ebookgen/metrics"
	"ebookgen/models"
)

const (
	ebooksDir  = "ebooks"
	promptsDir = "prompts"
)

// Artifacts are the public URLs of rendered files.
type Artifacts struct {
	PDFURL   string
	CoverURL string
}

type Renderer struct {
	outputDir    string
	publicPrefix string
	cover        coverFonts
	log          *logger.Logger
}

func New(cfg config.RenderConfig, log *logger.Logger) (*Renderer, error) {
	if log == nil {
		log = logger.Nop()
	}
	fonts := coverFonts{
		title:      basicfont.Face7x13,
		small:      basicfont.Face7x13,
		titleScale: 4,
		smallScale: 2,
	}
	if strings.TrimSpace(cfg.CoverFont) != "" {
		log.Info("Loading cover font", "font", cfg.CoverFont)
		title, err := loadFontFace(cfg.CoverFont, 56)
		if err != nil {
			return nil, fmt.Errorf("could not load cover font: %w", err)
		}
		small, err := loadFontFace(cfg.CoverFont, 26)
		if err != nil {
			return nil, fmt.Errorf("could not load cover font: %w", err)
		}
		fonts = coverFonts{title: title, small: small, titleScale: 1, smallScale: 1}
	}
	return &Renderer{
		outputDir:    cfg.OutputDir,
		publicPrefix: strings.TrimRight(cfg.PublicPrefix, "/"),
		cover:        fonts,
		log:          log,
	}, nil
}

// EbookPDFPath is where RenderEbook writes the PDF for id.
func (r *Renderer) EbookPDFPath(id string) string {
	return filepath.Join(r.outputDir, ebooksDir, id+".pdf")
}

// PromptsPDFPath is where RenderPrompts writes the PDF for id.
func (r *Renderer) PromptsPDFPath(id string) string {
	return filepath.Join(r.outputDir, promptsDir, id+".pdf")
}

// RenderEbook writes the cover PNG and the PDF for a completed document.
func (r *Renderer) RenderEbook(ctx context.Context, id string, doc models.Document) (Artifacts, error) {
	if err := ctx.Err(); err != nil {
		return Artifacts{}, err
	}
	if len(doc.Sections) == 0 {
		return Artifacts{}, fmt.Errorf("render ebook %s: document has no sections", id)
	}
	if err := os.MkdirAll(filepath.Join(r.outputDir, ebooksDir), 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("create output dir: %w", err)
	}

	coverPath := filepath.Join(r.outputDir, ebooksDir, id+".png")
	png, err := r.drawCover(doc.Title, doc.Description, id)
	if err != nil {
		metrics.Renders.WithLabelValues(models.KindEbook, "error").Inc()
		return Artifacts{}, err
	}
	if err := writeFileAtomic(coverPath, png); err != nil {
		metrics.Renders.WithLabelValues(models.KindEbook, "error").Inc()
		return Artifacts{}, err
	}

	if err := ctx.Err(); err != nil {
		return Artifacts{}, err
	}
	pdfBytes, err := ebookPDF(doc, coverPath)
	if err != nil {
		metrics.Renders.WithLabelValues(models.KindEbook, "error").Inc()
		return Artifacts{}, fmt.Errorf("render ebook %s: %w", id, err)
	}
	if err := writeFileAtomic(r.EbookPDFPath(id), pdfBytes); err != nil {
		metrics.Renders.WithLabelValues(models.KindEbook, "error").Inc()
		return Artifacts{}, err
	}

	metrics.Renders.WithLabelValues(models.KindEbook, "ok").Inc()
	r.log.Info("render.ebook.ok", "id", id, "sections", len(doc.Sections), "pdf_bytes", len(pdfBytes))
	return Artifacts{
		PDFURL:   r.publicURL(ebooksDir, id+".pdf"),
		CoverURL: r.publicURL(ebooksDir, id+".png"),
	}, nil
}

// RenderPrompts writes a numbered prompt list as a PDF.
func (r *Renderer) RenderPrompts(ctx context.Context, id, topic string, prompts []string) (Artifacts, error) {
	if err := ctx.Err(); err != nil {
		return Artifacts{}, err
	}
	if len(prompts) == 0 {
		return Artifacts{}, fmt.Errorf("render prompts %s: no prompts", id)
	}
	if err := os.MkdirAll(filepath.Join(r.outputDir, promptsDir), 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("create output dir: %w", err)
	}
	pdfBytes, err := promptsPDF(topic, prompts)
	if err != nil {
		metrics.Renders.WithLabelValues(models.KindPrompts, "error").Inc()
		return Artifacts{}, fmt.Errorf("render prompts %s: %w", id, err)
	}
	if err := writeFileAtomic(r.PromptsPDFPath(id), pdfBytes); err != nil {
		metrics.Renders.WithLabelValues(models.KindPrompts, "error").Inc()
		return Artifacts{}, err
	}
	metrics.Renders.WithLabelValues(models.KindPrompts, "ok").Inc()
	r.log.Info("render.prompts.ok", "id", id, "prompts", len(prompts), "pdf_bytes", len(pdfBytes))
	return Artifacts{PDFURL: r.publicURL(promptsDir, id+".pdf")}, nil
}

func (r *Renderer) publicURL(dir, name string) string {
	return r.publicPrefix + "/" + path.Join(dir, name)
}

// writeFileAtomic replaces path so readers never see a partially written file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".render-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", path, err)
	}
	// CreateTemp uses 0600; rendered files are served to clients.
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	face := truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	return face, nil
}
