package hoard

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

const (
	fieldResume      = "resume"
	fieldCoverLetter = "cover letter"
)

// Store provides durable CRUD over the hoard document. Every mutation reads
// the full document, edits it in memory, and rewrites it pretty-printed. The
// mutex serializes those cycles so an ingestion write can never race a
// generation write inside this process. Last writer wins at whole-document
// granularity; external writers are not reconciled.
type Store struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewStore creates a store backed by the JSON document at path. The file is
// lazily initialized to an empty hoard on first read.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads and parses the full hoard document, creating it if absent.
// There is no caching: the store is always consistent with the last
// successful write from this process.
func (s *Store) Load() (*Hoard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*Hoard, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		empty := &Hoard{JobListings: []NutNote{}}
		if err := s.save(empty); err != nil {
			return nil, err
		}
		return empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read hoard file %s: %w", s.path, err)
	}

	var hoard Hoard
	if err := json.Unmarshal(data, &hoard); err != nil {
		return nil, fmt.Errorf("failed to parse hoard file %s: %w", s.path, err)
	}
	if hoard.JobListings == nil {
		hoard.JobListings = []NutNote{}
	}
	return &hoard, nil
}

func (s *Store) save(hoard *Hoard) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create hoard directory: %w", err)
	}
	data, err := json.MarshalIndent(hoard, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize hoard: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write hoard file %s: %w", s.path, err)
	}
	return nil
}

// Count returns the number of records currently in the hoard.
func (s *Store) Count() (int, error) {
	hoard, err := s.Load()
	if err != nil {
		return 0, err
	}
	return len(hoard.JobListings), nil
}

// Get returns a copy of the record with the given key.
func (s *Store) Get(company, jobTitle string) (*NutNote, error) {
	hoard, err := s.Load()
	if err != nil {
		return nil, err
	}
	for i := range hoard.JobListings {
		if hoard.JobListings[i].matches(company, jobTitle) {
			note := hoard.JobListings[i]
			return &note, nil
		}
	}
	return nil, &ErrJobNotFound{Company: company, JobTitle: jobTitle}
}

// AddOrUpdate inserts a record, replacing any existing record with the same
// (company, jobTitle) key. Replacement is delete-then-reappend: an updated
// record moves to the end of the list. Consumers use that position as a
// cheap recency signal, so the semantic is preserved deliberately.
func (s *Store) AddOrUpdate(note NutNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hoard, err := s.load()
	if err != nil {
		return err
	}
	for i := range hoard.JobListings {
		if hoard.JobListings[i].matches(note.Company, note.JobTitle) {
			hoard.JobListings = append(hoard.JobListings[:i], hoard.JobListings[i+1:]...)
			break
		}
	}
	hoard.JobListings = append(hoard.JobListings, note)
	if err := s.save(hoard); err != nil {
		return err
	}
	s.logger.Info("hoard record stored",
		zap.String("company", note.Company),
		zap.String("jobTitle", note.JobTitle))
	return nil
}

// AppendResumeVersion adds a generated resume and its session record to an
// existing note in one locked read-modify-write. The updated record moves to
// the end of the list, same as AddOrUpdate.
func (s *Store) AppendResumeVersion(company, jobTitle, html string, session SessionData) error {
	return s.appendToRecord(company, jobTitle, func(note *NutNote) {
		note.HTML = append(note.HTML, html)
		note.SessionData = append(note.SessionData, session)
	})
}

// AppendCoverLetterVersion adds a generated cover letter and its session
// record, with the same move-to-end behavior as AppendResumeVersion.
func (s *Store) AppendCoverLetterVersion(company, jobTitle, letter string, session SessionData) error {
	return s.appendToRecord(company, jobTitle, func(note *NutNote) {
		note.CoverLetter = append(note.CoverLetter, letter)
		note.SessionData = append(note.SessionData, session)
	})
}

// appendToRecord applies fn to the record with the given key and reappends
// it at the end of the list. Holding the lock across the whole cycle means a
// concurrent ingestion write cannot interleave with a generation write.
func (s *Store) appendToRecord(company, jobTitle string, fn func(*NutNote)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hoard, err := s.load()
	if err != nil {
		return err
	}
	for i := range hoard.JobListings {
		if hoard.JobListings[i].matches(company, jobTitle) {
			note := hoard.JobListings[i]
			fn(&note)
			hoard.JobListings = append(hoard.JobListings[:i], hoard.JobListings[i+1:]...)
			hoard.JobListings = append(hoard.JobListings, note)
			return s.save(hoard)
		}
	}
	return &ErrJobNotFound{Company: company, JobTitle: jobTitle}
}

// Delete removes the record with the given key.
func (s *Store) Delete(company, jobTitle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hoard, err := s.load()
	if err != nil {
		return err
	}
	for i := range hoard.JobListings {
		if hoard.JobListings[i].matches(company, jobTitle) {
			hoard.JobListings = append(hoard.JobListings[:i], hoard.JobListings[i+1:]...)
			return s.save(hoard)
		}
	}
	return &ErrJobNotFound{Company: company, JobTitle: jobTitle}
}

// SetCollapsed persists the record's UI collapse state in place.
func (s *Store) SetCollapsed(company, jobTitle string, collapsed bool) error {
	return s.edit(company, jobTitle, func(note *NutNote) error {
		note.Collapsed = collapsed
		return nil
	})
}

// EditResumeVersion replaces the resume HTML at the given version index.
func (s *Store) EditResumeVersion(company, jobTitle string, index int, content string) error {
	return s.edit(company, jobTitle, func(note *NutNote) error {
		if note.HTML == nil {
			return &ErrNoVersions{Company: company, JobTitle: jobTitle, Field: fieldResume}
		}
		if index < 0 || index >= len(note.HTML) {
			return &ErrVersionOutOfRange{Field: fieldResume, Index: index, Count: len(note.HTML)}
		}
		note.HTML[index] = content
		return nil
	})
}

// EditCoverLetterVersion replaces the cover letter at the given version index.
func (s *Store) EditCoverLetterVersion(company, jobTitle string, index int, content string) error {
	return s.edit(company, jobTitle, func(note *NutNote) error {
		if note.CoverLetter == nil {
			return &ErrNoVersions{Company: company, JobTitle: jobTitle, Field: fieldCoverLetter}
		}
		if index < 0 || index >= len(note.CoverLetter) {
			return &ErrVersionOutOfRange{Field: fieldCoverLetter, Index: index, Count: len(note.CoverLetter)}
		}
		note.CoverLetter[index] = content
		return nil
	})
}

// DeleteResumeVersion removes the resume HTML at the given version index.
// When the last version is removed the html field disappears from the
// record entirely, distinguishing "never generated" from an empty array.
func (s *Store) DeleteResumeVersion(company, jobTitle string, index int) error {
	return s.edit(company, jobTitle, func(note *NutNote) error {
		if note.HTML == nil {
			return &ErrNoVersions{Company: company, JobTitle: jobTitle, Field: fieldResume}
		}
		if index < 0 || index >= len(note.HTML) {
			return &ErrVersionOutOfRange{Field: fieldResume, Index: index, Count: len(note.HTML)}
		}
		note.HTML = append(note.HTML[:index], note.HTML[index+1:]...)
		if len(note.HTML) == 0 {
			note.HTML = nil
		}
		return nil
	})
}

// DeleteCoverLetterVersion removes the cover letter at the given version
// index, with the same field-removal behavior as DeleteResumeVersion.
func (s *Store) DeleteCoverLetterVersion(company, jobTitle string, index int) error {
	return s.edit(company, jobTitle, func(note *NutNote) error {
		if note.CoverLetter == nil {
			return &ErrNoVersions{Company: company, JobTitle: jobTitle, Field: fieldCoverLetter}
		}
		if index < 0 || index >= len(note.CoverLetter) {
			return &ErrVersionOutOfRange{Field: fieldCoverLetter, Index: index, Count: len(note.CoverLetter)}
		}
		note.CoverLetter = append(note.CoverLetter[:index], note.CoverLetter[index+1:]...)
		if len(note.CoverLetter) == 0 {
			note.CoverLetter = nil
		}
		return nil
	})
}

// edit runs fn against the record with the given key and persists the result
// in place. The record keeps its list position; only AddOrUpdate moves
// records to the end. If fn fails nothing is written.
func (s *Store) edit(company, jobTitle string, fn func(*NutNote) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hoard, err := s.load()
	if err != nil {
		return err
	}
	for i := range hoard.JobListings {
		if hoard.JobListings[i].matches(company, jobTitle) {
			if err := fn(&hoard.JobListings[i]); err != nil {
				return err
			}
			return s.save(hoard)
		}
	}
	return &ErrJobNotFound{Company: company, JobTitle: jobTitle}
}
