package models

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestDocumentFromRawMatchesUnmarshal(t *testing.T) {
	in := `{"title":"T","description":"D","wordCount":7,"sections":[
		{"title":"A","content":"one two","subheadings":["s"],"examples":[]},
		{"title":"B","content":"three","keyTakeaways":["k1","k2"]}
	]}`
	var raw map[string]any
	if err := json.Unmarshal([]byte(in), &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	var want Document
	if err := json.Unmarshal([]byte(in), &want); err != nil {
		t.Fatalf("unmarshal doc: %v", err)
	}
	if got := DocumentFromRaw(raw); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
}

func TestDocumentFromRawShapes(t *testing.T) {
	doc := DocumentFromRaw(map[string]any{"sections": map[string]any{"title": "solo"}})
	if len(doc.Sections) != 1 || doc.Sections[0].Title != "solo" {
		t.Fatalf("single object: %+v", doc.Sections)
	}

	doc = DocumentFromRaw(map[string]any{"sections": []any{"x", 3.0, map[string]any{"title": "ok"}}})
	if len(doc.Sections) != 3 || doc.Sections[0].Title != "" || doc.Sections[2].Title != "ok" {
		t.Fatalf("mixed list: %+v", doc.Sections)
	}

	doc = DocumentFromRaw(map[string]any{"title": 5.0, "sections": "nope"})
	if doc.Title != "" || doc.Sections != nil {
		t.Fatalf("bad types: %+v", doc)
	}
}

func TestStringsOnly(t *testing.T) {
	if got := StringsOnly([]any{"a", 1.0, nil, "b"}); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("got %q", got)
	}
	if got := StringsOnly([]any{}); got == nil || len(got) != 0 {
		t.Fatalf("empty list should stay non-nil, got %#v", got)
	}
	if got := StringsOnly("a"); got != nil {
		t.Fatalf("scalar should give nil, got %#v", got)
	}
}

func TestCountWords(t *testing.T) {
	secs := []Section{{Content: "one two  three"}, {Content: "\nfour\tfive "}, {}}
	if n := CountWords(secs); n != 5 {
		t.Fatalf("words = %d, want 5", n)
	}
}

func TestPatchFieldsAndApplyAgree(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := JobPatch{
		Status:            Ptr(StatusGenerating),
		CurrentBatch:      Ptr(2),
		SectionsGenerated: Ptr(10),
		RenderPDFURL:      Ptr("/public/ebooks/x.pdf"),
		RenderAttempt:     true,
	}

	set := p.Fields(now)
	want := map[string]any{
		"updatedAt":                  now,
		"status":                     StatusGenerating,
		"progress.currentBatch":      2,
		"progress.sectionsGenerated": 10,
		"render.pdfUrl":              "/public/ebooks/x.pdf",
	}
	if !reflect.DeepEqual(set, want) {
		t.Fatalf("fields = %v\nwant %v", set, want)
	}
	if inc := p.Increments(); !reflect.DeepEqual(inc, map[string]any{"render.attempts": 1}) {
		t.Fatalf("increments = %v", inc)
	}

	j := Job{Topic: "Bees", Progress: Progress{TotalBatches: 4, CurrentBatch: 1}, Render: RenderState{Attempts: 1}}
	p.Apply(&j, now)
	if j.Topic != "Bees" || j.Status != StatusGenerating || !j.UpdatedAt.Equal(now) {
		t.Fatalf("job = %+v", j)
	}
	if j.Progress != (Progress{CurrentBatch: 2, TotalBatches: 4, SectionsGenerated: 10}) {
		t.Fatalf("progress = %+v", j.Progress)
	}
	if j.Render.PDFURL != "/public/ebooks/x.pdf" || j.Render.Attempts != 2 {
		t.Fatalf("render = %+v", j.Render)
	}
}

func TestEmptyPatchOnlyTouchesTimestamp(t *testing.T) {
	now := time.Now()
	if set := (JobPatch{}).Fields(now); len(set) != 1 {
		t.Fatalf("fields = %v", set)
	}
	if inc := (JobPatch{}).Increments(); inc != nil {
		t.Fatalf("increments = %v", inc)
	}
}

func TestIsTerminal(t *testing.T) {
	for status, want := range map[string]bool{
		StatusPending:    false,
		StatusGenerating: false,
		StatusCompleted:  true,
		StatusFailed:     true,
	} {
		if IsTerminal(status) != want {
			t.Errorf("IsTerminal(%q) = %v", status, !want)
		}
	}
}
