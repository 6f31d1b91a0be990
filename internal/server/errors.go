package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/stashboard/internal/hoard"
)

// ErrValidation indicates a request body failed validation.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus maps domain errors to HTTP status codes.
func HTTPStatus(err error) int {
	var (
		notFound   *hoard.ErrJobNotFound
		noVersions *hoard.ErrNoVersions
		outOfRange *hoard.ErrVersionOutOfRange
		validation *ErrValidation
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &noVersions):
		return http.StatusNotFound
	case errors.As(err, &outOfRange):
		return http.StatusBadRequest
	case errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
