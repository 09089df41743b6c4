package recovery

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"ebookgen/models"
)

const (
	placeholderTitle       = "Comprehensive Guide"
	placeholderDescription = "A detailed guide with practical insights"
	placeholderBody        = "This section covers important aspects of the topic. It provides valuable insights and practical advice that you can apply right away. The content is designed to be actionable and results-oriented."
)

var (
	sectionsKey  = regexp.MustCompile(`"sections"\s*:\s*\[`)
	sectionsSeen = regexp.MustCompile(`"sections"\s*:`)
	titleKey     = regexp.MustCompile(`"title"\s*:`)

	titleField       = regexp.MustCompile(`"title"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	descriptionField = regexp.MustCompile(`"description"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	// a body value is only trusted when a delimiter follows its closing quote
	contentField = regexp.MustCompile(`"content"\s*:\s*"((?:[^"\\]|\\.)*)"\s*[,}]`)

	listFields = map[string]*regexp.Regexp{
		"subheadings":  regexp.MustCompile(`"subheadings"\s*:\s*\[([\s\S]*?)\]`),
		"examples":     regexp.MustCompile(`"examples"\s*:\s*\[([\s\S]*?)\]`),
		"keyTakeaways": regexp.MustCompile(`"keyTakeaways"\s*:\s*\[([\s\S]*?)\]`),
	}

	rawEscapes = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\\`, `\`)
)

// directExtract parses the text between the first '{' and the last '}'.
func directExtract(text string) (models.Document, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return models.Document{}, false
	}
	doc, err := decodeDocument([]byte(text[start : end+1]))
	if err != nil || len(doc.Sections) == 0 {
		return models.Document{}, false
	}
	return doc, true
}

// bracketRepair finds where the sections array closes (or the text ends), keeps each
// well-formed object inside it and rebuilds a clean document around them.
func bracketRepair(text string) (models.Document, bool) {
	loc := sectionsKey.FindStringIndex(text)
	if loc == nil {
		return models.Document{}, false
	}
	open := loc[1] - 1
	end := matchClose(text, open, '[', ']')
	spanEnd := end
	if end < 0 {
		spanEnd = len(text)
	}

	var objects []json.RawMessage
	for _, obj := range balancedObjects(text[open+1 : spanEnd]) {
		if json.Valid([]byte(obj.text)) {
			objects = append(objects, json.RawMessage(obj.text))
		}
	}
	if len(objects) == 0 {
		return models.Document{}, false
	}

	surrounding := text[:loc[0]]
	if end >= 0 {
		surrounding += text[end+1:]
	}
	rebuilt, err := json.Marshal(struct {
		Title       string            `json:"title"`
		Description string            `json:"description"`
		Sections    []json.RawMessage `json:"sections"`
	}{
		Title:       captureOr(surrounding, titleField, placeholderTitle),
		Description: captureOr(surrounding, descriptionField, placeholderDescription),
		Sections:    objects,
	})
	if err != nil {
		return models.Document{}, false
	}
	doc, err := decodeDocument(rebuilt)
	if err != nil || len(doc.Sections) == 0 {
		return models.Document{}, false
	}
	return doc, true
}

// fieldExtract ignores the overall structure and pulls fields out of every innermost
// object that carries a title. Missing fields get placeholders.
func fieldExtract(text string) (models.Document, bool) {
	var sections []models.Section
	first := -1
	for _, c := range leafObjects(text) {
		if !titleKey.MatchString(c.text) || sectionsSeen.MatchString(c.text) {
			continue
		}
		if first < 0 {
			first = c.start
		}
		sections = append(sections, extractSection(c.text, len(sections)))
	}
	if len(sections) == 0 {
		return models.Document{}, false
	}
	prefix := text[:first]
	return models.Document{
		Title:       captureOr(prefix, titleField, placeholderTitle),
		Description: captureOr(prefix, descriptionField, placeholderDescription),
		Sections:    sections,
	}, true
}

func extractSection(obj string, idx int) models.Section {
	return models.Section{
		Title:        captureOr(obj, titleField, fmt.Sprintf("Section %d", idx+1)),
		Content:      captureOr(obj, contentField, placeholderBody),
		Subheadings:  extractList(obj, "subheadings", "Subheading"),
		Examples:     extractList(obj, "examples", "Example"),
		KeyTakeaways: extractList(obj, "keyTakeaways", "Key takeaway"),
	}
}

// extractList parses the bracketed contents of a list field strictly, falling back to
// a comma split. An absent field yields numbered placeholder items.
func extractList(obj, field, label string) []string {
	m := listFields[field].FindStringSubmatch(obj)
	if m == nil {
		return []string{label + " 1", label + " 2", label + " 3"}
	}
	var items []any
	if err := json.Unmarshal([]byte("["+m[1]+"]"), &items); err == nil {
		return models.StringsOnly(items)
	}
	out := []string{}
	for _, part := range strings.Split(m[1], ",") {
		item := strings.TrimSpace(part)
		item = strings.TrimPrefix(item, `"`)
		item = strings.TrimSuffix(item, `"`)
		if strings.TrimSpace(item) != "" {
			out = append(out, item)
		}
	}
	return out
}

// captureOr returns the decoded first capture of re in text, or def.
func captureOr(text string, re *regexp.Regexp, def string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return def
	}
	s := unquote(m[1])
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// unquote decodes JSON string escapes, tolerating raw control characters.
func unquote(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err == nil {
		return out
	}
	return rawEscapes.Replace(s)
}

func decodeDocument(data []byte) (models.Document, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.Document{}, err
	}
	return models.DocumentFromRaw(raw), nil
}

// Canned is the fixed document returned when nothing can be salvaged.
func Canned() models.Document {
	return models.Document{
		Title:       "Comprehensive Ebook",
		Description: "A detailed guide with practical insights",
		Sections: []models.Section{
			{
				Title:        "Introduction",
				Content:      "This ebook provides comprehensive coverage of the topic with detailed explanations and practical examples. The content is designed to be actionable and valuable for readers at all levels.",
				Subheadings:  []string{"Getting Started", "Core Concepts", "Practical Applications"},
				Examples:     []string{"Real-world scenario", "Step-by-step implementation", "Case study analysis"},
				KeyTakeaways: []string{"Understand the fundamentals", "Learn practical applications", "Apply knowledge immediately"},
			},
			{
				Title:        "Advanced Topics",
				Content:      "This section explores more advanced concepts and applications, providing deeper insights and specialized knowledge. You'll learn sophisticated techniques and strategies to enhance your skills.",
				Subheadings:  []string{"Advanced Techniques", "Best Practices", "Optimization Strategies"},
				Examples:     []string{"Complex implementation", "Advanced case study", "Performance optimization"},
				KeyTakeaways: []string{"Master advanced concepts", "Implement best practices", "Optimize for results"},
			},
		},
	}
}
