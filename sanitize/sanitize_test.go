package sanitize

import (
	"encoding/json"
	"reflect"
	"testing"

	"ebookgen/models"
)

func TestSectionTitle(t *testing.T) {
	cases := map[string]string{
		"Soil Basics 12":     "Soil Basics",
		"Soil Basics 3 4":    "Soil Basics",
		"  Watering  7  ":    "Watering",
		"2024":               "2024",
		"Top 10 Tips":        "Top 10 Tips",
		"":                   "Untitled Section 3",
		"   ":                "Untitled Section 3",
		"Untitled Section 9": "Untitled Section 9",
	}
	for in, want := range cases {
		if got := Section(models.Section{Title: in, Content: "x"}, 2).Title; got != want {
			t.Errorf("title %q -> %q, want %q", in, got, want)
		}
	}
}

func TestSectionBody(t *testing.T) {
	in := "Section 1: Intro ........ 3\n" +
		"Section 2: Soil 7\n" +
		"**Healthy soil** is the *foundation*.\n" +
		"* first point\n" +
		"  - second point\n" +
		"\n\n\n\n" +
		"Closing with **two** **bold** words.\n\n"
	want := "Healthy soil is the *foundation*.\n" +
		"first point\n" +
		"second point\n" +
		"\n" +
		"Closing with two bold words."

	got := Section(models.Section{Title: "T", Content: in}, 0).Content
	if got != want {
		t.Fatalf("body:\n got %q\nwant %q", got, want)
	}
}

func TestSectionBodyPlaceholder(t *testing.T) {
	for _, in := range []string{"", "   \n\n", "Section 4: Only a toc line 12"} {
		got := Section(models.Section{Title: "T", Content: in}, 4).Content
		if got != "Content for section 5 is being generated." {
			t.Errorf("body %q -> %q", in, got)
		}
	}
}

func TestSectionListsNeverNil(t *testing.T) {
	sec := Section(models.Section{Title: "T", Content: "x", Examples: []string{"e"}}, 0)
	if sec.Subheadings == nil || sec.KeyTakeaways == nil {
		t.Fatalf("nil list survived: %+v", sec)
	}
	if len(sec.Subheadings) != 0 || !reflect.DeepEqual(sec.Examples, []string{"e"}) {
		t.Fatalf("lists = %+v", sec)
	}
}

func TestSanitizeNilSections(t *testing.T) {
	doc := models.Document{Title: "T"}
	if got := Sanitize(doc); !reflect.DeepEqual(got, doc) {
		t.Fatalf("nil sections should be a no-op, got %+v", got)
	}
}

func TestSanitizeKeepsOrderAndDocumentFields(t *testing.T) {
	doc := models.Document{
		Title:       "Doc 5",
		Description: "**desc**",
		WordCount:   3,
		Sections:    []models.Section{{Title: "B"}, {Title: "A"}, {}},
	}
	got := Sanitize(doc)
	if got.Title != "Doc 5" || got.Description != "**desc**" || got.WordCount != 3 {
		t.Fatalf("document fields changed: %+v", got)
	}
	titles := []string{got.Sections[0].Title, got.Sections[1].Title, got.Sections[2].Title}
	if !reflect.DeepEqual(titles, []string{"B", "A", "Untitled Section 3"}) {
		t.Fatalf("titles = %q", titles)
	}
	if doc.Sections[2].Title != "" {
		t.Fatal("input document was mutated")
	}
}

func TestFromRawCoercesShapes(t *testing.T) {
	var raw map[string]any
	err := json.Unmarshal([]byte(`{
		"title": "Doc",
		"sections": {"title": "Only 4", "content": "x", "subheadings": "not a list", "examples": [1, "kept", null, {"a": 1}], "keyTakeaways": null}
	}`), &raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	doc := FromRaw(raw)
	if len(doc.Sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(doc.Sections))
	}
	sec := doc.Sections[0]
	if sec.Title != "Only" {
		t.Fatalf("title = %q", sec.Title)
	}
	if len(sec.Subheadings) != 0 || sec.Subheadings == nil {
		t.Fatalf("subheadings = %#v", sec.Subheadings)
	}
	if !reflect.DeepEqual(sec.Examples, []string{"kept"}) {
		t.Fatalf("examples = %q", sec.Examples)
	}
	if sec.KeyTakeaways == nil || len(sec.KeyTakeaways) != 0 {
		t.Fatalf("keyTakeaways = %#v", sec.KeyTakeaways)
	}

	raw = map[string]any{"sections": []any{"junk", map[string]any{"title": "Real"}}}
	doc = FromRaw(raw)
	if len(doc.Sections) != 2 || doc.Sections[0].Title != "Untitled Section 1" || doc.Sections[1].Title != "Real" {
		t.Fatalf("sections = %+v", doc.Sections)
	}

	if doc := FromRaw(map[string]any{"title": "x"}); doc.Sections != nil {
		t.Fatalf("absent sections should stay nil, got %+v", doc.Sections)
	}
}

var idempotenceSeeds = []string{
	"",
	"plain",
	"**bold** and * bullets",
	"** * x**",
	"* * - nested bullets",
	"***a** b",
	"Section 1: x 2\n\n\n\nSection 3",
	"a\n \n\t\n \nb",
	"\u00a0* x \u00a0",
}

func TestSanitizeIdempotent(t *testing.T) {
	for _, body := range idempotenceSeeds {
		for _, title := range []string{"", "Title 1 2", "A 5 \u00a0 6", "Untitled Section 1"} {
			doc := models.Document{Sections: []models.Section{{Title: title, Content: body}, {}}}
			once := Sanitize(doc)
			twice := Sanitize(once)
			if !reflect.DeepEqual(once, twice) {
				t.Fatalf("not idempotent for title %q body %q:\n once %+v\ntwice %+v", title, body, once, twice)
			}
		}
	}
}

func FuzzSanitizeIdempotent(f *testing.F) {
	for _, s := range idempotenceSeeds {
		f.Add(s, s)
	}
	f.Fuzz(func(t *testing.T, title, body string) {
		doc := models.Document{Sections: []models.Section{{Title: title, Content: body}}}
		once := Sanitize(doc)
		if twice := Sanitize(once); !reflect.DeepEqual(once, twice) {
			t.Fatalf("not idempotent: %q / %q", title, body)
		}
	})
}
