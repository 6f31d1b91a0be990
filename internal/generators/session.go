// Package generators produces tailored resumes and cover letters for a
// stored job listing, either free-form through the model or by rendering a
// template over structured resume data. Every attempt leaves a session
// record on disk and on the listing for auditability.
package generators

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/stashboard/internal/hoard"
)

// Sessions allocates per-generation working directories. Each session keeps
// the exact job listing the generator saw plus the artifact it produced, so
// a result can always be traced back to its inputs.
type Sessions struct {
	dir    string
	logger *zap.Logger
}

// NewSessions creates a session allocator rooted at dir.
func NewSessions(dir string, logger *zap.Logger) *Sessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sessions{dir: dir, logger: logger}
}

// Begin creates a session directory and writes the job listing markdown
// into it. The returned record is appended to the listing once the
// generation settles.
func (s *Sessions) Begin(generator string, note *hoard.NutNote) (hoard.SessionData, error) {
	id := uuid.NewString()
	sessionDir := filepath.Join(s.dir, id)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return hoard.SessionData{}, fmt.Errorf("failed to create session directory: %w", err)
	}

	listingPath := filepath.Join(sessionDir, "job-listing.md")
	if err := os.WriteFile(listingPath, []byte(note.Markdown), 0o644); err != nil {
		return hoard.SessionData{}, fmt.Errorf("failed to write session job listing: %w", err)
	}

	s.logger.Debug("generation session started",
		zap.String("sessionId", id),
		zap.String("generator", generator),
		zap.String("company", note.Company))

	return hoard.SessionData{
		SessionID:      id,
		JobListingPath: listingPath,
		Generator:      generator,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// SaveArtifact writes the generated document next to the session's job
// listing and records its path.
func (s *Sessions) SaveArtifact(session *hoard.SessionData, filename, content string) error {
	path := filepath.Join(s.dir, session.SessionID, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write session artifact: %w", err)
	}
	session.ArtifactPath = path
	return nil
}
