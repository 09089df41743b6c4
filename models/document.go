package models

import "strings"

// Document is the assembled output of an ebook job
type Document struct {
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	Sections    []Section `bson:"sections" json:"sections"`
	WordCount   int       `bson:"wordCount,omitempty" json:"wordCount,omitempty"`
}

// Section is one titled unit of a Document
type Section struct {
	Title        string   `bson:"title" json:"title"`
	Content      string   `bson:"content" json:"content"`
	Subheadings  []string `bson:"subheadings" json:"subheadings"`
	Examples     []string `bson:"examples" json:"examples"`
	KeyTakeaways []string `bson:"keyTakeaways" json:"keyTakeaways"`
}

// CountWords sums the whitespace-delimited tokens of every section body.
func CountWords(sections []Section) int {
	total := 0
	for _, s := range sections {
		total += len(strings.Fields(s.Content))
	}
	return total
}

// DocumentFromRaw converts a loosely decoded JSON object into a Document.
// A "sections" value holding a single object becomes a one-element list and
// non-object entries become empty sections so the count is preserved.
// List fields keep only their string elements; a non-list value becomes nil.
func DocumentFromRaw(raw map[string]any) Document {
	doc := Document{
		Title:       stringField(raw, "title"),
		Description: stringField(raw, "description"),
	}
	if n, ok := raw["wordCount"].(float64); ok {
		doc.WordCount = int(n)
	}

	switch v := raw["sections"].(type) {
	case []any:
		doc.Sections = make([]Section, 0, len(v))
		for _, item := range v {
			obj, _ := item.(map[string]any)
			doc.Sections = append(doc.Sections, SectionFromRaw(obj))
		}
	case map[string]any:
		doc.Sections = []Section{SectionFromRaw(v)}
	}
	return doc
}

// SectionFromRaw converts one loosely decoded section object. A nil map yields an empty Section.
func SectionFromRaw(raw map[string]any) Section {
	if raw == nil {
		return Section{}
	}
	return Section{
		Title:        stringField(raw, "title"),
		Content:      stringField(raw, "content"),
		Subheadings:  StringsOnly(raw["subheadings"]),
		Examples:     StringsOnly(raw["examples"]),
		KeyTakeaways: StringsOnly(raw["keyTakeaways"]),
	}
}

// StringsOnly returns the string elements of a list value, dropping everything else.
// Values that are not lists return nil.
func StringsOnly(v any) []string {
	list, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return append([]string{}, ss...)
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}
