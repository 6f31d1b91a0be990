package processor

import "fmt"

// ExtractionError wraps a failed model call during listing processing. The
// queue treats these as transient and retries the job on a later poll.
type ExtractionError struct {
	Stage string
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("listing extraction failed at %s: %v", e.Stage, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// ParseError indicates the model returned output that does not satisfy the
// extraction schema.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
