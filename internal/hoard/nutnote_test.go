package hoard

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNutNoteMarshalDistinguishesNilFromEmpty(t *testing.T) {
	note := NutNote{
		Company:     "Acme",
		JobTitle:    "Widget Engineer",
		ScrapeDate:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		HTML:        []string{},
		CoverLetter: nil,
	}

	raw, err := json.Marshal(note)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if got, present := doc["html"]; !present || string(got) != "[]" {
		t.Errorf("expected html to serialize as [], got %s (present=%v)", got, present)
	}
	if _, present := doc["coverLetter"]; present {
		t.Errorf("expected coverLetter key to be absent for nil slice, got %s", raw)
	}
	if _, present := doc["sessionData"]; present {
		t.Errorf("expected sessionData key to be absent for nil slice, got %s", raw)
	}
}

func TestNutNoteRoundTrip(t *testing.T) {
	note := NutNote{
		Company:      "Acme",
		JobTitle:     "Widget Engineer",
		Requirements: []string{"Go", "SQL"},
		ScrapeDate:   time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC),
		HTML:         []string{"<html>v0</html>"},
	}

	raw, err := json.Marshal(note)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var back NutNote
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if back.Identifier() != "Acme - Widget Engineer" {
		t.Errorf("unexpected identifier: %s", back.Identifier())
	}
	if len(back.HTML) != 1 || back.HTML[0] != "<html>v0</html>" {
		t.Errorf("html did not round-trip: %v", back.HTML)
	}
	if back.CoverLetter != nil {
		t.Errorf("expected nil coverLetter after round-trip, got %v", back.CoverLetter)
	}
}
