package generators

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/stashboard/internal/hoard"
	"github.com/jonathan/stashboard/internal/llm"
)

// Templatized renders resumes from HTML template files over the structured
// resume data, with the model used only for the skill diff. Deterministic
// layout, no free-form prose.
type Templatized struct {
	client         llm.Client
	store          *hoard.Store
	sessions       *Sessions
	logger         *zap.Logger
	templateDir    string
	resumeDataPath string
}

// NewTemplatized creates a template-driven generator.
func NewTemplatized(client llm.Client, store *hoard.Store, sessions *Sessions, logger *zap.Logger, templateDir, resumeDataPath string) *Templatized {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Templatized{
		client:         client,
		store:          store,
		sessions:       sessions,
		logger:         logger,
		templateDir:    templateDir,
		resumeDataPath: resumeDataPath,
	}
}

// templateData is what a resume template renders over.
type templateData struct {
	Name           string
	Title          string
	Street         string
	City           string
	State          string
	Zip            string
	Phone          string
	Email          string
	Website        string
	GitHub         string
	Skills         []string
	Experience     []Experience
	Education      []Education
	Certifications []string
	Projects       []Project
}

// GenerateResume renders the numbered template over the resume data and
// appends the result as a new version. Skills the listing requires that the
// candidate also plausibly has are merged into the skills section so ATS
// keyword scans find them.
func (t *Templatized) GenerateResume(ctx context.Context, company, jobTitle string, templateNumber int) error {
	note, err := t.store.Get(company, jobTitle)
	if err != nil {
		return err
	}

	tmplPath := filepath.Join(t.templateDir, fmt.Sprintf("resume-template-%d.html", templateNumber))
	source, err := os.ReadFile(tmplPath)
	if err != nil {
		return fmt.Errorf("resume template %d not found: %w", templateNumber, err)
	}
	tmpl, err := template.New(filepath.Base(tmplPath)).Parse(string(source))
	if err != nil {
		return fmt.Errorf("failed to parse resume template %d: %w", templateNumber, err)
	}

	data, err := LoadResumeData(t.resumeDataPath)
	if err != nil {
		return err
	}

	session, err := t.sessions.Begin("templatized-resume", note)
	if err != nil {
		return err
	}

	skills := data.Skills
	if missing, derr := unmatchedSkills(ctx, t.client, data, note); derr != nil {
		t.logger.Warn("skill diff unavailable, rendering with resume skills only",
			zap.String("company", company),
			zap.Error(derr))
	} else {
		skills = mergeSkills(data.Skills, missing)
	}

	var out strings.Builder
	err = tmpl.Execute(&out, templateData{
		Name:           data.PersonalInformation.Name,
		Title:          note.JobTitle,
		Street:         data.PersonalInformation.Address.Street,
		City:           data.PersonalInformation.Address.City,
		State:          data.PersonalInformation.Address.State,
		Zip:            data.PersonalInformation.Address.Zip,
		Phone:          data.PersonalInformation.Phone,
		Email:          data.PersonalInformation.Email,
		Website:        data.PersonalInformation.Website,
		GitHub:         data.PersonalInformation.GitHub,
		Skills:         skills,
		Experience:     data.Experience,
		Education:      data.Education,
		Certifications: data.Certifications,
		Projects:       data.Projects,
	})
	if err != nil {
		return fmt.Errorf("failed to render resume template %d: %w", templateNumber, err)
	}

	html := out.String()
	if err := t.sessions.SaveArtifact(&session, "resume.html", html); err != nil {
		return err
	}

	if err := t.store.AppendResumeVersion(company, jobTitle, html, session); err != nil {
		return fmt.Errorf("failed to store rendered resume: %w", err)
	}

	t.logger.Info("templatized resume rendered",
		zap.String("company", company),
		zap.String("jobTitle", jobTitle),
		zap.Int("template", templateNumber))
	return nil
}
