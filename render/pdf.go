package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"ebookgen/models"
)

type rgb struct{ r, g, b int }

var (
	primary = rgb{30, 64, 175}
	ink     = rgb{0, 0, 0}
	muted   = rgb{75, 85, 99}
	subtle  = rgb{107, 114, 128}
)

const (
	pageMargin = 25.0
	pageWidth  = 210.0
)

func setText(pdf *fpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }

// newPDF returns an A4 document with page footers and a UTF-8 to cp1252
// translator for the core fonts.
func newPDF(title string) (*fpdf.Fpdf, func(string) string) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(title, true)
	pdf.SetCreator("ebookgen", false)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		if pdf.PageNo() == 1 {
			return
		}
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		setText(pdf, subtle)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	return pdf, pdf.UnicodeTranslatorFromDescriptor("")
}

func ebookPDF(doc models.Document, coverPath string) ([]byte, error) {
	pdf, tr := newPDF(doc.Title)

	// Cover
	pdf.AddPage()
	y := 60.0
	if coverPath != "" {
		const w = 90.0
		pdf.ImageOptions(coverPath, (pageWidth-w)/2, 30, w, 0, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		y = 30 + w*coverHeight/coverWidth + 12
	}
	pdf.SetY(y)
	pdf.SetFont("Helvetica", "B", 26)
	setText(pdf, primary)
	pdf.MultiCell(0, 11, tr(doc.Title), "", "C", false)
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 14)
	setText(pdf, muted)
	pdf.MultiCell(0, 8, tr(doc.Description), "", "C", false)

	// Table of contents
	links := make([]int, len(doc.Sections))
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 24)
	setText(pdf, ink)
	pdf.CellFormat(0, 12, "Table of Contents", "", 1, "L", false, 0, "")
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 12)
	setText(pdf, primary)
	for i, sec := range doc.Sections {
		links[i] = pdf.AddLink()
		y0, page := pdf.GetY(), pdf.PageNo()
		pdf.MultiCell(0, 7, tr(fmt.Sprintf("%d. %s", i+1, sec.Title)), "", "L", false)
		if pdf.PageNo() == page {
			pdf.Link(pageMargin, y0, pageWidth-2*pageMargin, pdf.GetY()-y0, links[i])
		}
		pdf.Ln(2)
	}

	// Sections
	for i, sec := range doc.Sections {
		pdf.AddPage()
		pdf.SetLink(links[i], 0, -1)

		pdf.SetFont("Helvetica", "B", 16)
		setText(pdf, primary)
		pdf.CellFormat(0, 9, fmt.Sprintf("Section %d", i+1), "", 1, "L", false, 0, "")
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 20)
		setText(pdf, ink)
		pdf.MultiCell(0, 9, tr(sec.Title), "", "L", false)
		pdf.Ln(6)

		pdf.SetFont("Helvetica", "", 11)
		setText(pdf, ink)
		for _, para := range strings.Split(sec.Content, "\n\n") {
			if strings.TrimSpace(para) == "" {
				continue
			}
			pdf.MultiCell(0, 6, tr(para), "", "J", false)
			pdf.Ln(3)
		}

		bulletList(pdf, tr, "Key Points:", sec.Subheadings, rgb{55, 65, 81})
		bulletList(pdf, tr, "Examples:", sec.Examples, rgb{5, 150, 105})
		bulletList(pdf, tr, "Key Takeaways:", sec.KeyTakeaways, rgb{220, 38, 38})
	}

	pdf.AddPage()
	pdf.SetY(120)
	pdf.SetFont("Helvetica", "I", 12)
	setText(pdf, subtle)
	pdf.CellFormat(0, 10, "Thanks for reading", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func bulletList(pdf *fpdf.Fpdf, tr func(string) string, heading string, items []string, color rgb) {
	if len(items) == 0 {
		return
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	setText(pdf, primary)
	pdf.CellFormat(0, 7, heading, "", 1, "L", false, 0, "")
	pdf.Ln(1)
	pdf.SetFont("Helvetica", "", 10)
	setText(pdf, color)
	for _, item := range items {
		pdf.SetX(pageMargin + 5)
		pdf.MultiCell(0, 5.5, tr("• "+item), "", "L", false)
		pdf.Ln(1)
	}
}

func promptsPDF(topic string, prompts []string) ([]byte, error) {
	title := fmt.Sprintf("%d AI Prompts for %s", len(prompts), topic)
	pdf, tr := newPDF(title)

	pdf.AddPage()
	pdf.SetY(90)
	pdf.SetFont("Helvetica", "B", 30)
	setText(pdf, primary)
	pdf.MultiCell(0, 13, fmt.Sprintf("%d AI Prompts for", len(prompts)), "", "C", false)
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 22)
	setText(pdf, ink)
	pdf.MultiCell(0, 10, tr(topic), "", "C", false)

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	setText(pdf, ink)
	pdf.CellFormat(0, 10, fmt.Sprintf("%d AI Prompts", len(prompts)), "", 1, "L", false, 0, "")
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 11)
	for i, p := range prompts {
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", i+1, p)), "", "L", false)
		pdf.Ln(2)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
