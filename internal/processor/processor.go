// Package processor turns a raw captured job listing into a structured,
// persisted hoard record.
package processor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/stashboard/internal/events"
	"github.com/jonathan/stashboard/internal/hoard"
	"github.com/jonathan/stashboard/internal/llm"
	"github.com/jonathan/stashboard/internal/scrape"
)

const extractionPrompt = `Extract ONLY the detailed job posting from this page. Look for the main job that shows full details (company, title, description, requirements, salary, location). Ignore job lists, navigation, ads, and related jobs.

Return a JSON object with exactly these fields:
- "company": the complete company name exactly as it appears, including legal entity suffixes (LLC, Inc, Corp, Ltd) and punctuation
- "jobTitle": the exact job title as posted, preserving formatting, abbreviations and capitalization
- "salary": salary range/amount or "N/A" if not specified
- "requirements": array of key skills/qualifications required
- "jobSummary": brief 2-3 sentence description of the role
- "location": work location (remote/hybrid/on-site/city) or "N/A"

Job listing text:

`

const markdownPrompt = `Extract ONLY the detailed job posting from this page. Look for the main job that shows full details (company, title, description, requirements, salary, location). Ignore job lists, navigation, ads, and related jobs. Return your response in markdown format. Don't wrap your response in a code block indicating that it is markdown. Just output the markdown itself.

`

// JobListingProcessor extracts structure from captured HTML and writes the
// result through the hoard store. It does not broadcast hoard-updated
// itself; the hoard file watcher owns that.
type JobListingProcessor struct {
	client      llm.Client
	store       *hoard.Store
	broadcaster *events.Broadcaster
	logger      *zap.Logger
}

// New creates a processor. A nil broadcaster or logger is replaced with a
// no-op equivalent.
func New(client llm.Client, store *hoard.Store, broadcaster *events.Broadcaster, logger *zap.Logger) *JobListingProcessor {
	if broadcaster == nil {
		broadcaster = events.NewBroadcaster(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobListingProcessor{client: client, store: store, broadcaster: broadcaster, logger: logger}
}

// Process implements queue.Processor. Any error propagates to the job queue,
// which leaves the file queued for retry; a job-processing-failed event is
// broadcast for observability before returning.
func (p *JobListingProcessor) Process(ctx context.Context, rawJobListing string) error {
	note, err := p.process(ctx, rawJobListing)
	if err != nil {
		p.broadcaster.Broadcast(events.TypeJobProcessingFailed, map[string]any{
			"message": fmt.Sprintf("Job processing failed: %v", err),
			"error":   err.Error(),
		})
		return err
	}
	p.logger.Info("job processed",
		zap.String("company", note.Company),
		zap.String("jobTitle", note.JobTitle))
	return nil
}

func (p *JobListingProcessor) process(ctx context.Context, rawJobListing string) (*hoard.NutNote, error) {
	text, err := scrape.InnerText(rawJobListing)
	if err != nil {
		return nil, &ExtractionError{Stage: "html-to-text", Cause: err}
	}
	if text == "" {
		return nil, &ParseError{Message: "captured page contains no text"}
	}

	p.broadcaster.LLMProcessingStarted("extract-job-listing")
	rawJSON, err := p.client.GenerateJSON(ctx, extractionPrompt+text, llm.TierStandard)
	if err != nil {
		return nil, &ExtractionError{Stage: "structured-extraction", Cause: err}
	}
	ex, err := parseExtraction(llm.CleanJSONBlock(rawJSON))
	if err != nil {
		return nil, err
	}
	p.broadcaster.LLMProcessingCompleted("extract-job-listing", rawJSON)

	p.broadcaster.LLMProcessingStarted("render-markdown")
	markdown, err := p.client.GenerateContent(ctx, markdownPrompt+text, llm.TierStandard)
	if err != nil {
		return nil, &ExtractionError{Stage: "markdown-rendering", Cause: err}
	}
	p.broadcaster.LLMProcessingCompleted("render-markdown", markdown)

	refURL, err := scrape.InnerTextOf(rawJobListing, scrape.ReferenceSelector)
	if err != nil {
		refURL = ""
	}

	note := hoard.NutNote{
		Company:      ex.Company,
		JobTitle:     ex.JobTitle,
		Salary:       ex.Salary,
		Location:     ex.Location,
		JobSummary:   ex.JobSummary,
		Requirements: ex.Requirements,
		URL:          CanonicalURL(refURL, ex.Company, ex.JobTitle),
		Markdown:     markdown,
		ScrapeDate:   time.Now().UTC(),
		Collapsed:    false,
		HTML:         []string{},
		CoverLetter:  []string{},
		SessionData:  []hoard.SessionData{},
	}
	if err := p.store.AddOrUpdate(note); err != nil {
		return nil, fmt.Errorf("failed to store processed listing: %w", err)
	}
	return &note, nil
}
