package hoard

import "fmt"

// ErrJobNotFound indicates no record exists for a (company, jobTitle) key.
type ErrJobNotFound struct {
	Company  string
	JobTitle string
}

func (e *ErrJobNotFound) Error() string {
	return fmt.Sprintf("job not found: %s - %s", e.Company, e.JobTitle)
}

// ErrNoVersions indicates a versioned field has never been generated for a
// record.
type ErrNoVersions struct {
	Company  string
	JobTitle string
	Field    string
}

func (e *ErrNoVersions) Error() string {
	return fmt.Sprintf("no %s versions found for job: %s - %s", e.Field, e.Company, e.JobTitle)
}

// ErrVersionOutOfRange indicates an index outside [0, Count) was addressed.
type ErrVersionOutOfRange struct {
	Field string
	Index int
	Count int
}

func (e *ErrVersionOutOfRange) Error() string {
	return fmt.Sprintf("invalid %s index %d: job has %d version(s)", e.Field, e.Index, e.Count)
}
