package generators

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/stashboard/internal/events"
	"github.com/jonathan/stashboard/internal/hoard"
	"github.com/jonathan/stashboard/internal/llm"
	"github.com/jonathan/stashboard/internal/scrape"
)

const outputClampClause = `Do not include any preamble, commentary, or code block formatting. Output only the final content, nothing else.`

// Freeform generates documents by letting the model write them end to end
// from the resume data and the job listing markdown.
type Freeform struct {
	client         llm.Client
	store          *hoard.Store
	sessions       *Sessions
	broadcaster    *events.Broadcaster
	logger         *zap.Logger
	resumeDataPath string
}

// NewFreeform creates a free-form generator. Nil broadcaster or logger get
// no-op equivalents.
func NewFreeform(client llm.Client, store *hoard.Store, sessions *Sessions, broadcaster *events.Broadcaster, logger *zap.Logger, resumeDataPath string) *Freeform {
	if broadcaster == nil {
		broadcaster = events.NewBroadcaster(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Freeform{
		client:         client,
		store:          store,
		sessions:       sessions,
		broadcaster:    broadcaster,
		logger:         logger,
		resumeDataPath: resumeDataPath,
	}
}

// GenerateResume writes a tailored HTML resume and appends it as a new
// version on the listing, together with the session record. The job listing
// markdown is embedded invisibly in the output so a rendered copy can later
// be traced to the posting it targeted.
func (f *Freeform) GenerateResume(ctx context.Context, company, jobTitle string) error {
	note, err := f.store.Get(company, jobTitle)
	if err != nil {
		return err
	}

	session, err := f.sessions.Begin("freeform-resume", note)
	if err != nil {
		return err
	}

	data, err := LoadResumeData(f.resumeDataPath)
	if err != nil {
		return err
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return err
	}

	f.broadcaster.LLMProcessingStarted("generate-resume")
	prompt := fmt.Sprintf(`Use the candidate data below to generate a resume tailored to the job listing. Only include skills present in the candidate data. Use the personal_information block as the canonical source of contact details, no matter what other values appear elsewhere. Output the resume as a complete HTML document. %s

Candidate data:
%s

Job listing:
%s`, outputClampClause, dataJSON, note.Markdown)

	html, err := f.client.GenerateContent(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		f.broadcaster.Broadcast(events.TypeGenerationFailed, map[string]any{
			"generator": "freeform-resume",
			"company":   company,
			"jobTitle":  jobTitle,
			"error":     err.Error(),
		})
		return fmt.Errorf("resume generation failed: %w", err)
	}
	f.broadcaster.LLMProcessingCompleted("generate-resume", html)

	html = scrape.EmbedHiddenText(html, "Job listing used to tailor this resume: "+note.Markdown)
	if err := f.sessions.SaveArtifact(&session, "resume.html", html); err != nil {
		return err
	}

	if err := f.store.AppendResumeVersion(company, jobTitle, html, session); err != nil {
		return fmt.Errorf("failed to store generated resume: %w", err)
	}

	f.logger.Info("resume generated",
		zap.String("company", company),
		zap.String("jobTitle", jobTitle),
		zap.Int("versions", len(note.HTML)+1))
	return nil
}

// GenerateCoverLetter writes a tailored cover letter and appends it as a
// new version on the listing.
func (f *Freeform) GenerateCoverLetter(ctx context.Context, company, jobTitle string) error {
	note, err := f.store.Get(company, jobTitle)
	if err != nil {
		return err
	}

	session, err := f.sessions.Begin("freeform-cover-letter", note)
	if err != nil {
		return err
	}

	data, err := LoadResumeData(f.resumeDataPath)
	if err != nil {
		return err
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return err
	}

	f.broadcaster.LLMProcessingStarted("generate-cover-letter")
	prompt := fmt.Sprintf(`Use the candidate data below to write a tailored cover letter for the job listing. Only reference skills present in the candidate data. Use the personal_information block as the canonical source of contact details. %s

Candidate data:
%s

Job listing:
%s`, outputClampClause, dataJSON, note.Markdown)

	letter, err := f.client.GenerateContent(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		f.broadcaster.Broadcast(events.TypeGenerationFailed, map[string]any{
			"generator": "freeform-cover-letter",
			"company":   company,
			"jobTitle":  jobTitle,
			"error":     err.Error(),
		})
		return fmt.Errorf("cover letter generation failed: %w", err)
	}
	f.broadcaster.LLMProcessingCompleted("generate-cover-letter", letter)

	if err := f.sessions.SaveArtifact(&session, "cover-letter.txt", letter); err != nil {
		return err
	}

	if err := f.store.AppendCoverLetterVersion(company, jobTitle, letter, session); err != nil {
		return fmt.Errorf("failed to store generated cover letter: %w", err)
	}

	f.logger.Info("cover letter generated",
		zap.String("company", company),
		zap.String("jobTitle", jobTitle),
		zap.Int("versions", len(note.CoverLetter)+1))
	return nil
}
