package workflows

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/archivist/internal/documents"
	"github.com/JaimeStill/archivist/pkg/keylock"
)

// Domain errors for workflow operations.
var (
	ErrNotFound        = errors.New("workflow not found")
	ErrDuplicate       = errors.New("workflow already exists")
	ErrInvalidWorkflow = errors.New("invalid workflow")
	ErrInvalidEvent    = errors.New("invalid workflow event")
	ErrInvalidAction   = errors.New("invalid workflow action")
)

// MapHTTPStatus maps workflow domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, documents.ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidWorkflow) || errors.Is(err, ErrInvalidEvent) {
		return http.StatusBadRequest
	}
	if errors.Is(err, keylock.ErrLockTimeout) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
