package webhooks_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"testing"

	"github.com/JaimeStill/archivist/internal/webhooks"
)

func TestSign(t *testing.T) {
	body := []byte(`{"event":"document.added"}`)

	mac := hmac.New(sha256.New, []byte("key"))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))

	if got := webhooks.Sign("key", body); got != want {
		t.Errorf("Sign() = %q, want %q", got, want)
	}
	if webhooks.Sign("other", body) == want {
		t.Error("different secrets produced the same signature")
	}
}

func TestSubscribes(t *testing.T) {
	w := webhooks.Webhook{Events: []string{"document.added", "workflow.executed"}}

	tests := []struct {
		event string
		want  bool
	}{
		{"document.added", true},
		{"workflow.executed", true},
		{"document.modified", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			if got := w.Subscribes(tt.event); got != tt.want {
				t.Errorf("Subscribes(%q) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestLogSucceeded(t *testing.T) {
	code := func(c int) *int { return &c }
	msg := "boom"

	tests := []struct {
		name string
		log  webhooks.Log
		want bool
	}{
		{"ok", webhooks.Log{ResponseCode: code(204)}, true},
		{"server error", webhooks.Log{ResponseCode: code(500)}, false},
		{"redirect", webhooks.Log{ResponseCode: code(302)}, false},
		{"transport error", webhooks.Log{ErrorMessage: &msg}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.log.Succeeded(); got != tt.want {
				t.Errorf("Succeeded() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", webhooks.ErrNotFound, http.StatusNotFound},
		{"duplicate", webhooks.ErrDuplicate, http.StatusConflict},
		{"inactive", webhooks.ErrInactive, http.StatusConflict},
		{"invalid", webhooks.ErrInvalidWebhook, http.StatusBadRequest},
		{"unknown", errors.New("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := webhooks.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
