package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/stashboard/internal/events"
	"github.com/jonathan/stashboard/internal/fetch"
	"github.com/jonathan/stashboard/internal/hoard"
	"github.com/jonathan/stashboard/internal/queue"
)

type fakeGenerator struct {
	resumeCalls      int
	coverCalls       int
	templateCalls    int
	lastTemplateUsed int
	err              error
}

func (f *fakeGenerator) GenerateResume(_ context.Context, _, _ string) error {
	f.resumeCalls++
	return f.err
}

func (f *fakeGenerator) GenerateCoverLetter(_ context.Context, _, _ string) error {
	f.coverCalls++
	return f.err
}

type fakeRenderer struct {
	gen *fakeGenerator
}

func (f *fakeRenderer) GenerateResume(_ context.Context, _, _ string, templateNumber int) error {
	f.gen.templateCalls++
	f.gen.lastTemplateUsed = templateNumber
	return f.gen.err
}

type testEnv struct {
	server *Server
	store  *hoard.Store
	gen    *fakeGenerator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store := hoard.NewStore(filepath.Join(dir, "hoard.json"), nil)

	broadcaster := events.NewBroadcaster(nil)
	t.Cleanup(func() { _ = broadcaster.Close() })

	jobQueue, err := queue.NewJobQueue(filepath.Join(dir, "queue"), time.Second,
		queue.ProcessorFunc(func(context.Context, string) error { return nil }),
		broadcaster, nil)
	if err != nil {
		t.Fatalf("NewJobQueue: %v", err)
	}

	gen := &fakeGenerator{}
	srv := New(0, Deps{
		Store:       store,
		Broadcaster: broadcaster,
		JobQueue:    jobQueue,
		GenQueue:    queue.NewGenerationQueue(nil),
		Freeform:    gen,
		Templatized: &fakeRenderer{gen: gen},
		Fetcher:     fetch.NewCachedFetcher(fetch.NewFetcher(&fetch.Options{Timeout: 5 * time.Second, UserAgent: "test"}, nil), 0, nil),
	})
	t.Cleanup(srv.rateLimiter.Stop)

	return &testEnv{server: srv, store: store, gen: gen}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func seedListing(t *testing.T, store *hoard.Store) {
	t.Helper()
	err := store.AddOrUpdate(hoard.NutNote{
		Company:     "Acme Corp",
		JobTitle:    "Widget Engineer",
		Markdown:    "# listing",
		HTML:        []string{"<html>v0</html>"},
		CoverLetter: []string{},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetHoard(t *testing.T) {
	env := newTestEnv(t)
	seedListing(t, env.store)

	rec := env.do(t, http.MethodGet, "/api/hoard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var h hoard.Hoard
	if err := json.Unmarshal(rec.Body.Bytes(), &h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(h.JobListings) != 1 || h.JobListings[0].Company != "Acme Corp" {
		t.Errorf("unexpected hoard: %+v", h)
	}
}

func TestEnqueueJob(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/jobs",
		`{"html": "<html><body>posting</body></html>", "url": "https://acme.example/jobs/123"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["jobId"] == "" {
		t.Error("response missing jobId")
	}
}

func TestEnqueueJobValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing html", `{"url": "https://acme.example"}`},
		{"malformed url", `{"html": "<p>x</p>", "url": "::not-a-url"}`},
		{"not json", `nope`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/jobs", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, expected 400", rec.Code)
			}
		})
	}
}

func TestQueueStatus(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/queue-status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if _, ok := status["jobQueue"]; !ok {
		t.Error("response missing jobQueue")
	}
	if _, ok := status["generationQueue"]; !ok {
		t.Error("response missing generationQueue")
	}
}

func TestDeleteNutNote(t *testing.T) {
	env := newTestEnv(t)
	seedListing(t, env.store)

	rec := env.do(t, http.MethodDelete, "/api/nut-note",
		`{"company": "Acme Corp", "jobTitle": "Widget Engineer"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	rec = env.do(t, http.MethodDelete, "/api/nut-note",
		`{"company": "Acme Corp", "jobTitle": "Widget Engineer"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, expected 404", rec.Code)
	}
}

func TestCollapse(t *testing.T) {
	env := newTestEnv(t)
	seedListing(t, env.store)

	rec := env.do(t, http.MethodPost, "/api/collapse",
		`{"company": "Acme Corp", "jobTitle": "Widget Engineer", "collapsed": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	note, err := env.store.Get("Acme Corp", "Widget Engineer")
	if err != nil {
		t.Fatal(err)
	}
	if !note.Collapsed {
		t.Error("collapsed flag not persisted")
	}
}

func TestEditResumeVersion(t *testing.T) {
	env := newTestEnv(t)
	seedListing(t, env.store)

	rec := env.do(t, http.MethodPut, "/api/resume-version",
		`{"company": "Acme Corp", "jobTitle": "Widget Engineer", "index": 0, "content": "<html>edited</html>"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	note, _ := env.store.Get("Acme Corp", "Widget Engineer")
	if note.HTML[0] != "<html>edited</html>" {
		t.Errorf("version not edited: %q", note.HTML[0])
	}

	rec = env.do(t, http.MethodPut, "/api/resume-version",
		`{"company": "Acme Corp", "jobTitle": "Widget Engineer", "index": 5, "content": "x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out-of-range edit status = %d, expected 400", rec.Code)
	}
}

func TestDeleteCoverLetterVersionWithoutVersions(t *testing.T) {
	env := newTestEnv(t)
	seedListing(t, env.store)

	rec := env.do(t, http.MethodDelete, "/api/cover-letter-version",
		`{"company": "Acme Corp", "jobTitle": "Widget Engineer", "index": 0}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400 for empty version list", rec.Code)
	}
}

func TestGenerateResumeFreeform(t *testing.T) {
	env := newTestEnv(t)
	seedListing(t, env.store)

	rec := env.do(t, http.MethodPost, "/api/generate-resume",
		`{"company": "Acme Corp", "jobTitle": "Widget Engineer"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if env.gen.resumeCalls != 1 || env.gen.templateCalls != 0 {
		t.Errorf("freeform=%d templatized=%d", env.gen.resumeCalls, env.gen.templateCalls)
	}
}

func TestGenerateResumeTemplatized(t *testing.T) {
	env := newTestEnv(t)
	seedListing(t, env.store)

	rec := env.do(t, http.MethodPost, "/api/generate-resume",
		`{"company": "Acme Corp", "jobTitle": "Widget Engineer", "template": 2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if env.gen.templateCalls != 1 || env.gen.lastTemplateUsed != 2 {
		t.Errorf("templatized=%d template=%d", env.gen.templateCalls, env.gen.lastTemplateUsed)
	}
}

func TestGenerateCoverLetterNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.gen.err = &hoard.ErrJobNotFound{Company: "Nobody", JobTitle: "Nothing"}

	rec := env.do(t, http.MethodPost, "/api/generate-cover-letter",
		`{"company": "Nobody", "jobTitle": "Nothing"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, expected 404", rec.Code)
	}
}

func TestEventsStatus(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/events-status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodOptions, "/api/hoard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{&hoard.ErrJobNotFound{}, http.StatusNotFound},
		{&hoard.ErrNoVersions{}, http.StatusNotFound},
		{&hoard.ErrVersionOutOfRange{}, http.StatusBadRequest},
		{&ErrValidation{Field: "company"}, http.StatusBadRequest},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.expected {
			t.Errorf("HTTPStatus(%T) = %d, expected %d", tt.err, got, tt.expected)
		}
	}
}
