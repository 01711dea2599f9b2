package webhooks

import (
	"errors"
	"net/http"
)

// Domain errors for webhook operations.
var (
	ErrNotFound       = errors.New("webhook not found")
	ErrDuplicate      = errors.New("webhook already exists")
	ErrInactive       = errors.New("webhook is inactive")
	ErrInvalidWebhook = errors.New("invalid webhook")
)

// MapHTTPStatus maps webhook domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInactive) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidWebhook) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
