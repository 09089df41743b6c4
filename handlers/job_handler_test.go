package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ebookgen/db"
	"ebookgen/models"
)

type fakeJobs struct {
	mu      sync.Mutex
	ebooks  []models.Job
	prompts []models.Job
	renders []models.Job
	err     error
}

func (f *fakeJobs) SubmitEbook(_ context.Context, job models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ebooks = append(f.ebooks, job)
	return f.err
}

func (f *fakeJobs) SubmitPrompts(_ context.Context, job models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, job)
	return f.err
}

func (f *fakeJobs) SubmitRender(_ context.Context, job models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renders = append(f.renders, job)
	return f.err
}

type dirFiles string

func (d dirFiles) EbookPDFPath(id string) string {
	return filepath.Join(string(d), "ebooks", id+".pdf")
}

func (d dirFiles) PromptsPDFPath(id string) string {
	return filepath.Join(string(d), "prompts", id+".pdf")
}

type brokenStore struct{ *db.MemoryStore }

func (brokenStore) Ping(context.Context) error { return errors.New("no reachable servers") }

func setup(t *testing.T) (*db.MemoryStore, *fakeJobs, dirFiles, http.Handler) {
	t.Helper()
	store := db.NewMemoryStore()
	jobs := &fakeJobs{}
	files := dirFiles(t.TempDir())
	mux := http.NewServeMux()
	NewJobHandler(store, jobs, files, nil).Routes(mux)
	return store, jobs, files, CORS(mux)
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestCreateEbook(t *testing.T) {
	store, jobs, _, h := setup(t)

	rec := do(h, http.MethodPost, "/api/ebooks/generate", `{"topic":"  Gardening  ","numberOfSections":12}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp struct {
		EbookID          string `json:"ebookId"`
		Status           string `json:"status"`
		NumberOfSections int    `json:"numberOfSections"`
	}
	decode(t, rec, &resp)
	if resp.Status != models.StatusPending || resp.NumberOfSections != 12 {
		t.Fatalf("response = %+v", resp)
	}

	id, err := primitive.ObjectIDFromHex(resp.EbookID)
	if err != nil {
		t.Fatalf("ebookId %q: %v", resp.EbookID, err)
	}
	job, err := store.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("stored job: %v", err)
	}
	if job.Topic != "Gardening" || job.Document.Title != "Ebook about Gardening" || job.Document.Description != "Generating..." {
		t.Fatalf("stored job = %+v", job)
	}
	if len(jobs.ebooks) != 1 || jobs.ebooks[0].ID != id {
		t.Fatalf("submitted = %+v", jobs.ebooks)
	}
}

func TestCreateEbookClampsSections(t *testing.T) {
	cases := []struct {
		body string
		want int
	}{
		{`{"topic":"x"}`, 10},
		{`{"topic":"x","numberOfSections":1}`, 2},
		{`{"topic":"x","numberOfSections":0}`, 2},
		{`{"topic":"x","numberOfSections":50}`, 20},
		{`{"topic":"x","numberOfSections":7}`, 7},
	}
	for _, tc := range cases {
		_, _, _, h := setup(t)
		rec := do(h, http.MethodPost, "/api/ebooks/generate", tc.body)
		var resp struct {
			NumberOfSections int `json:"numberOfSections"`
		}
		decode(t, rec, &resp)
		if resp.NumberOfSections != tc.want {
			t.Errorf("%s: sections = %d, want %d", tc.body, resp.NumberOfSections, tc.want)
		}
	}
}

func TestCreateEbookValidation(t *testing.T) {
	_, jobs, _, h := setup(t)

	for _, body := range []string{`{"topic":"   "}`, `{}`, `not json`} {
		rec := do(h, http.MethodPost, "/api/ebooks/generate", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", body, rec.Code)
		}
		var resp map[string]string
		decode(t, rec, &resp)
		if resp["error"] == "" || resp["details"] == "" {
			t.Errorf("%s: error body = %v", body, resp)
		}
	}
	if len(jobs.ebooks) != 0 {
		t.Fatalf("invalid requests were submitted: %d", len(jobs.ebooks))
	}
}

func TestCreateEbookQueueUnavailable(t *testing.T) {
	_, jobs, _, h := setup(t)
	jobs.err = errors.New("job queue is full")

	rec := do(h, http.MethodPost, "/api/ebooks/generate", `{"topic":"Chess"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCreatePrompts(t *testing.T) {
	store, jobs, _, h := setup(t)

	cases := []struct {
		body string
		want int
	}{
		{`{"topic":"Chess"}`, 100},
		{`{"topic":"Chess","count":0}`, 1},
		{`{"topic":"Chess","count":500}`, 200},
		{`{"topic":"Chess","count":25}`, 25},
	}
	for _, tc := range cases {
		rec := do(h, http.MethodPost, "/api/prompts/generate", tc.body)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("%s: status = %d", tc.body, rec.Code)
		}
		var resp struct {
			PromptID string `json:"promptId"`
			Count    int    `json:"count"`
		}
		decode(t, rec, &resp)
		if resp.Count != tc.want {
			t.Errorf("%s: count = %d, want %d", tc.body, resp.Count, tc.want)
		}
		id, _ := primitive.ObjectIDFromHex(resp.PromptID)
		job, err := store.GetJob(context.Background(), id)
		if err != nil || job.Kind != models.KindPrompts || job.RequestedPrompts != tc.want {
			t.Fatalf("%s: stored job = %+v, %v", tc.body, job, err)
		}
	}
	if len(jobs.prompts) != len(cases) {
		t.Fatalf("submitted %d packs", len(jobs.prompts))
	}
}

func TestGetEbook(t *testing.T) {
	store, _, _, h := setup(t)
	job := &models.Job{Kind: models.KindEbook, Topic: "Tea", Status: models.StatusGenerating,
		Progress: models.Progress{CurrentBatch: 1, TotalBatches: 2, SectionsGenerated: 5}}
	id, _ := store.CreateJob(context.Background(), job)

	rec := do(h, http.MethodGet, "/api/ebooks/"+id.Hex(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got models.Job
	decode(t, rec, &got)
	if got.Status != models.StatusGenerating || got.Progress.SectionsGenerated != 5 {
		t.Fatalf("job = %+v", got)
	}

	if rec := do(h, http.MethodGet, "/api/ebooks/not-an-id", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid id status = %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/ebooks/"+primitive.NewObjectID().Hex(), ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", rec.Code)
	}
	// An ebook is not reachable through the prompts routes.
	if rec := do(h, http.MethodGet, "/api/prompts/"+id.Hex(), ""); rec.Code != http.StatusNotFound {
		t.Fatalf("wrong kind status = %d", rec.Code)
	}
}

func TestListEbooks(t *testing.T) {
	store, _, _, h := setup(t)
	ctx := context.Background()
	for _, topic := range []string{"a", "b"} {
		_, _ = store.CreateJob(ctx, &models.Job{Kind: models.KindEbook, Topic: topic, Status: models.StatusPending})
	}
	_, _ = store.CreateJob(ctx, &models.Job{Kind: models.KindPrompts, Topic: "p", Status: models.StatusPending})

	rec := do(h, http.MethodGet, "/api/ebooks", "")
	var got []models.Job
	decode(t, rec, &got)
	if len(got) != 2 {
		t.Fatalf("listed %d jobs, want 2", len(got))
	}
	for _, j := range got {
		if j.Kind != models.KindEbook {
			t.Fatalf("listed a %s job", j.Kind)
		}
	}
}

func TestDownloadEbook(t *testing.T) {
	store, _, files, h := setup(t)
	ctx := context.Background()

	pending := &models.Job{Kind: models.KindEbook, Status: models.StatusCompleted,
		Document: models.Document{Title: "Tea"}, Render: models.RenderState{Status: models.RenderPending}}
	pid, _ := store.CreateJob(ctx, pending)
	if rec := do(h, http.MethodGet, "/api/ebooks/"+pid.Hex()+"/download", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unrendered download status = %d", rec.Code)
	}

	job := &models.Job{Kind: models.KindEbook, Status: models.StatusCompleted,
		Document: models.Document{Title: "Tea & Biscuits: A Guide"}, Render: models.RenderState{Status: models.RenderDone}}
	id, _ := store.CreateJob(ctx, job)
	if rec := do(h, http.MethodGet, "/api/ebooks/"+id.Hex()+"/download", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing file status = %d", rec.Code)
	}

	path := files.EbookPDFPath(id.Hex())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("%PDF-1.3 test"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := do(h, http.MethodGet, "/api/ebooks/"+id.Hex()+"/download", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="Tea___Biscuits__A_Guide.pdf"` {
		t.Fatalf("disposition = %q", cd)
	}
	if rec.Body.String() != "%PDF-1.3 test" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestDownloadPrompts(t *testing.T) {
	store, _, files, h := setup(t)
	job := &models.Job{Kind: models.KindPrompts, Topic: "Chess", Status: models.StatusCompleted,
		Render: models.RenderState{Status: models.RenderDone}}
	id, _ := store.CreateJob(context.Background(), job)

	path := files.PromptsPDFPath(id.Hex())
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	if err := os.WriteFile(path, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := do(h, http.MethodGet, "/api/prompts/"+id.Hex()+"/download", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "AI_Prompts_Chess.pdf") {
		t.Fatalf("disposition = %q", cd)
	}
}

func TestRerender(t *testing.T) {
	store, jobs, _, h := setup(t)
	ctx := context.Background()

	generating, _ := store.CreateJob(ctx, &models.Job{Kind: models.KindEbook, Status: models.StatusGenerating})
	if rec := do(h, http.MethodPost, "/api/ebooks/"+generating.Hex()+"/render", ""); rec.Code != http.StatusConflict {
		t.Fatalf("generating job status = %d", rec.Code)
	}

	running, _ := store.CreateJob(ctx, &models.Job{Kind: models.KindEbook, Status: models.StatusCompleted,
		Render: models.RenderState{Status: models.RenderRunning}})
	if rec := do(h, http.MethodPost, "/api/ebooks/"+running.Hex()+"/render", ""); rec.Code != http.StatusConflict {
		t.Fatalf("rendering job status = %d", rec.Code)
	}

	failed, _ := store.CreateJob(ctx, &models.Job{Kind: models.KindEbook, Status: models.StatusCompleted,
		Render: models.RenderState{Status: models.RenderFailed, Error: "disk full"}})
	rec := do(h, http.MethodPost, "/api/ebooks/"+failed.Hex()+"/render", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("failed render status = %d", rec.Code)
	}
	if len(jobs.renders) != 1 || jobs.renders[0].ID != failed {
		t.Fatalf("renders = %+v", jobs.renders)
	}
}

func TestHealth(t *testing.T) {
	_, _, _, h := setup(t)
	if rec := do(h, http.MethodGet, "/api/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	mux := http.NewServeMux()
	NewJobHandler(brokenStore{db.NewMemoryStore()}, &fakeJobs{}, dirFiles(t.TempDir()), nil).Routes(mux)
	rec := do(mux, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("broken store status = %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	_, _, _, h := setup(t)
	rec := do(h, http.MethodOptions, "/api/ebooks/generate", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
}

func TestDownloadName(t *testing.T) {
	cases := map[string]string{
		"":                "ebook",
		"Simple":          "Simple",
		"Tea & Biscuits":  "Tea___Biscuits",
		"Café au lait #1": "Caf__au_lait__1",
	}
	for in, want := range cases {
		if got := DownloadName(in); got != want {
			t.Errorf("DownloadName(%q) = %q, want %q", in, got, want)
		}
	}
}
