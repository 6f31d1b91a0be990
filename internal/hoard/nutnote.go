// Package hoard implements the persistent collection of processed job
// records. The whole collection lives in a single JSON document that is read
// and rewritten in full on every mutation; a store-level mutex keeps the
// read-modify-write cycles single-writer within the process.
package hoard

import (
	"encoding/json"
	"time"
)

// SessionData is the audit record of one generation attempt. The pipeline
// treats it as opaque; it is only ever appended and displayed.
type SessionData struct {
	SessionID      string    `json:"sessionId"`
	JobListingPath string    `json:"jobListingPath,omitempty"`
	ArtifactPath   string    `json:"artifactPath,omitempty"`
	Generator      string    `json:"generator,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NutNote is a single job record. Identity is the (company, jobTitle) pair.
//
// HTML, CoverLetter and SessionData are append-only version arrays: the
// index is the version number. A nil slice means the field was never
// generated (or its last version was deleted) and is omitted from the JSON
// document entirely; a non-nil empty slice serializes as []. Downstream
// consumers rely on that distinction.
type NutNote struct {
	Company      string        `json:"company"`
	JobTitle     string        `json:"jobTitle"`
	Salary       string        `json:"salary,omitempty"`
	Location     string        `json:"location,omitempty"`
	JobSummary   string        `json:"jobSummary,omitempty"`
	Requirements []string      `json:"requirements"`
	URL          string        `json:"url,omitempty"`
	Markdown     string        `json:"markdown,omitempty"`
	ScrapeDate   time.Time     `json:"scrapeDate"`
	Collapsed    bool          `json:"collapsed"`
	PDFPath      string        `json:"pdfPath,omitempty"`
	HTML         []string      `json:"html"`
	CoverLetter  []string      `json:"coverLetter"`
	SessionData  []SessionData `json:"sessionData"`
}

// Identifier returns the display key for a record.
func (n *NutNote) Identifier() string {
	return n.Company + " - " + n.JobTitle
}

// matches reports whether the record has the given natural key.
func (n *NutNote) matches(company, jobTitle string) bool {
	return n.Company == company && n.JobTitle == jobTitle
}

// MarshalJSON drops the versioned-array keys when their slice is nil so that
// "never generated" round-trips as an absent field rather than null.
func (n NutNote) MarshalJSON() ([]byte, error) {
	type plain NutNote
	raw, err := json.Marshal(plain(n))
	if err != nil {
		return nil, err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	for _, key := range []string{"html", "coverLetter", "sessionData", "requirements"} {
		if string(doc[key]) == "null" {
			delete(doc, key)
		}
	}
	return json.Marshal(doc)
}

// Hoard is the full persisted document.
type Hoard struct {
	JobListings []NutNote `json:"jobListings"`
}
