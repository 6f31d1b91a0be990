package processor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonathan/stashboard/internal/events"
	"github.com/jonathan/stashboard/internal/hoard"
	"github.com/jonathan/stashboard/internal/llm"
)

// fakeClient returns canned responses keyed by call type.
type fakeClient struct {
	jsonResponse string
	jsonErr      error
	textResponse string
	textErr      error
}

func (f *fakeClient) GenerateContent(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	return f.textResponse, f.textErr
}

func (f *fakeClient) GenerateJSON(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	return f.jsonResponse, f.jsonErr
}

func (f *fakeClient) Close() error { return nil }

const capturedPage = `<html><head><title>Job</title></head><body>
<h1>Widget Engineer</h1>
<p>Acme Corp is hiring. Remote. Build widgets all day.</p>
<div style="display:none" aria-hidden="true"><span data-stashboard-ref="url">https://acme.example/careers/widget-engineer</span></div>
</body></html>`

const validExtraction = `{
  "company": "Acme Corp",
  "jobTitle": "Widget Engineer",
  "salary": "N/A",
  "requirements": [],
  "jobSummary": "Build widgets all day.",
  "location": "Remote"
}`

func newTestStore(t *testing.T) *hoard.Store {
	t.Helper()
	return hoard.NewStore(filepath.Join(t.TempDir(), "hoard.json"), nil)
}

func TestProcessStoresExtractedListing(t *testing.T) {
	store := newTestStore(t)
	client := &fakeClient{
		jsonResponse: "```json\n" + validExtraction + "\n```",
		textResponse: "# Widget Engineer at Acme Corp",
	}
	p := New(client, store, nil, nil)

	if err := p.Process(context.Background(), capturedPage); err != nil {
		t.Fatalf("Process: %v", err)
	}

	note, err := store.Get("Acme Corp", "Widget Engineer")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if note.Salary != "N/A" || note.Location != "Remote" {
		t.Errorf("unexpected fields: salary=%q location=%q", note.Salary, note.Location)
	}
	if note.Markdown != "# Widget Engineer at Acme Corp" {
		t.Errorf("unexpected markdown %q", note.Markdown)
	}
	if note.URL != "https://acme.example/careers/widget-engineer" {
		t.Errorf("expected embedded reference URL kept, got %q", note.URL)
	}
	if note.Requirements == nil || len(note.Requirements) != 0 {
		t.Errorf("expected empty requirements, got %#v", note.Requirements)
	}
	if note.HTML == nil || len(note.HTML) != 0 {
		t.Errorf("expected empty resume versions, got %#v", note.HTML)
	}
	if note.CoverLetter == nil || len(note.CoverLetter) != 0 {
		t.Errorf("expected empty cover letter versions, got %#v", note.CoverLetter)
	}
	if note.ScrapeDate.IsZero() || time.Since(note.ScrapeDate) > time.Minute {
		t.Errorf("scrape date not set: %v", note.ScrapeDate)
	}

	if count, _ := store.Count(); count != 1 {
		t.Errorf("expected 1 listing, got %d", count)
	}
}

func TestProcessReprocessingReplacesRecord(t *testing.T) {
	store := newTestStore(t)
	client := &fakeClient{
		jsonResponse: validExtraction,
		textResponse: "first pass",
	}
	p := New(client, store, nil, nil)

	if err := p.Process(context.Background(), capturedPage); err != nil {
		t.Fatalf("first Process: %v", err)
	}
	client.textResponse = "second pass"
	if err := p.Process(context.Background(), capturedPage); err != nil {
		t.Fatalf("second Process: %v", err)
	}

	if count, _ := store.Count(); count != 1 {
		t.Fatalf("expected 1 listing after reprocessing, got %d", count)
	}
	note, err := store.Get("Acme Corp", "Widget Engineer")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if note.Markdown != "second pass" {
		t.Errorf("expected replaced record, got markdown %q", note.Markdown)
	}
}

func TestProcessRejectsInvalidExtraction(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"missing fields", `{"company": "Acme Corp"}`},
		{"empty company", `{"company": "", "jobTitle": "X", "salary": "N/A", "requirements": [], "jobSummary": "s", "location": "Remote"}`},
		{"not json", `the model rambled instead`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			client := &fakeClient{jsonResponse: tt.json, textResponse: "md"}
			p := New(client, store, nil, nil)

			err := p.Process(context.Background(), capturedPage)
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if count, _ := store.Count(); count != 0 {
				t.Errorf("invalid extraction must not be stored, got %d listings", count)
			}
		})
	}
}

func TestProcessBroadcastsFailure(t *testing.T) {
	broadcaster := events.NewBroadcaster(nil)
	defer broadcaster.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := broadcaster.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	store := newTestStore(t)
	client := &fakeClient{jsonErr: errors.New("model unavailable")}
	p := New(client, store, broadcaster, nil)

	if err := p.Process(context.Background(), capturedPage); err == nil {
		t.Fatal("expected error from failed extraction")
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sub:
			if ev.Type == events.TypeJobProcessingFailed {
				return
			}
		case <-deadline:
			t.Fatal("job-processing-failed event never broadcast")
		}
	}
}

func TestProcessRejectsEmptyPage(t *testing.T) {
	store := newTestStore(t)
	p := New(&fakeClient{}, store, nil, nil)

	err := p.Process(context.Background(), "<html><body><script>x()</script></body></html>")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError for empty page, got %v", err)
	}
}
