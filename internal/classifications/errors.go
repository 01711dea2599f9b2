package classifications

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/archivist/internal/documents"
)

// Domain errors for classification operations.
var (
	ErrInvalidResult = errors.New("invalid classification result")
	ErrInvalidID     = errors.New("invalid document id")
)

// MapHTTPStatus maps classification domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, documents.ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidResult) || errors.Is(err, ErrInvalidID) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
