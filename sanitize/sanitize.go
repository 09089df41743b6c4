// Package sanitize normalizes an assembled document before it is stored as final.
// Sanitize is idempotent and never changes section order or count.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"

	"ebookgen/models"
)

var (
	trailingPageNumber = regexp.MustCompile(`(?:\s+\d+)+$`)
	untitledTitle      = regexp.MustCompile(`^Untitled Section \d+$`)

	tocLine      = regexp.MustCompile(`(?m)^[ \t]*Section \d+:?.*?\d+[ \t]*$`)
	boldMarker   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	bulletMarker = regexp.MustCompile(`(?m)^[ \t]*(?:[*•-][ \t]+)+`)
	blankRun     = regexp.MustCompile(`\n(?:[ \t]*\n){2,}`)
)

// Sanitize returns a normalized copy of doc. A nil section list is left alone.
func Sanitize(doc models.Document) models.Document {
	if doc.Sections == nil {
		return doc
	}
	out := doc
	out.Sections = make([]models.Section, len(doc.Sections))
	for i, sec := range doc.Sections {
		out.Sections[i] = Section(sec, i)
	}
	return out
}

// FromRaw coerces a loosely decoded document and sanitizes it.
func FromRaw(raw map[string]any) models.Document {
	return Sanitize(models.DocumentFromRaw(raw))
}

// Section normalizes one section at zero-based position idx.
func Section(sec models.Section, idx int) models.Section {
	body := fixedPoint(sec.Content, cleanBody)
	if body == "" {
		body = fmt.Sprintf("Content for section %d is being generated.", idx+1)
	}
	title := fixedPoint(sec.Title, cleanTitle)
	if title == "" {
		title = fmt.Sprintf("Untitled Section %d", idx+1)
	}
	return models.Section{
		Title:        title,
		Content:      body,
		Subheadings:  stringList(sec.Subheadings),
		Examples:     stringList(sec.Examples),
		KeyTakeaways: stringList(sec.KeyTakeaways),
	}
}

// fixedPoint applies fn until the text stops changing. Every rule only deletes
// characters, so the loop terminates.
func fixedPoint(s string, fn func(string) string) string {
	for {
		next := fn(s)
		if next == s {
			return s
		}
		s = next
	}
}

// cleanTitle drops trailing page numbers copied from a table of contents.
func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if untitledTitle.MatchString(s) {
		return s
	}
	return strings.TrimSpace(trailingPageNumber.ReplaceAllString(s, ""))
}

func cleanBody(s string) string {
	s = tocLine.ReplaceAllString(s, "")
	s = boldMarker.ReplaceAllString(s, "$1")
	s = bulletMarker.ReplaceAllString(s, "")
	s = blankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func stringList(in []string) []string {
	return append([]string{}, in...)
}
