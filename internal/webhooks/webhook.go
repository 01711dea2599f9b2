// Package webhooks implements outbound event notification for Archivist.
// It stores webhook registrations and their delivery logs, and delivers
// HMAC-signed JSON payloads with bounded, cancellable retry.
package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Events emitted by Archivist.
const (
	EventDocumentAdded      = "document.added"
	EventDocumentModified   = "document.modified"
	EventDocumentClassified = "document.classified"
	EventWorkflowExecuted   = "workflow.executed"
	EventTest               = "webhook.test"
)

// Webhook is an external endpoint subscribed to one or more events.
type Webhook struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	URL             string     `json:"url"`
	Secret          string     `json:"secret"`
	IsActive        bool       `json:"is_active"`
	Events          []string   `json:"events"`
	TimeoutSeconds  int        `json:"timeout_seconds"`
	RetryCount      int        `json:"retry_count"`
	LastTriggeredAt *time.Time `json:"last_triggered_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Subscribes reports whether the webhook is registered for event.
func (w *Webhook) Subscribes(event string) bool {
	return slices.Contains(w.Events, event)
}

// Log records a single delivery attempt.
type Log struct {
	ID              uuid.UUID       `json:"id"`
	WebhookID       uuid.UUID       `json:"webhook_id"`
	Event           string          `json:"event"`
	Payload         json.RawMessage `json:"payload"`
	ResponseCode    *int            `json:"response_code"`
	ResponseBody    *string         `json:"response_body"`
	ErrorMessage    *string         `json:"error_message"`
	Attempt         int             `json:"attempt"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
	ExecutedAt      time.Time       `json:"executed_at"`
}

// Succeeded reports whether the attempt received a 2xx response.
func (l *Log) Succeeded() bool {
	return l.ErrorMessage == nil && l.ResponseCode != nil && *l.ResponseCode >= 200 && *l.ResponseCode < 300
}

// Payload is the JSON body delivered to webhook endpoints.
type Payload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// Delivery summarizes the outcome of one attempt.
type Delivery struct {
	WebhookID  uuid.UUID `json:"webhook_id"`
	Event      string    `json:"event"`
	Attempt    int       `json:"attempt"`
	StatusCode int       `json:"status_code,omitempty"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}

// Stats aggregates delivery logs for one webhook over a period.
type Stats struct {
	WebhookID      uuid.UUID `json:"webhook_id"`
	Days           int       `json:"days"`
	Total          int       `json:"total"`
	Success        int       `json:"success"`
	Errors         int       `json:"errors"`
	AvgTimeMs      float64   `json:"avg_time_ms"`
	MaxTimeMs      int64     `json:"max_time_ms"`
	SuccessRatePct float64   `json:"success_rate_pct"`
}

// CreateCommand carries the data needed to register a webhook.
// An empty Secret is replaced with a generated one; zero TimeoutSeconds and
// a nil RetryCount take the configured defaults.
type CreateCommand struct {
	Name           string   `json:"name"`
	URL            string   `json:"url"`
	Secret         string   `json:"secret"`
	Events         []string `json:"events"`
	IsActive       *bool    `json:"is_active"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	RetryCount     *int     `json:"retry_count"`
}

// UpdateCommand carries the fields to change on a webhook. Nil fields are left unchanged.
type UpdateCommand struct {
	Name           *string  `json:"name"`
	URL            *string  `json:"url"`
	Secret         *string  `json:"secret"`
	Events         []string `json:"events"`
	IsActive       *bool    `json:"is_active"`
	TimeoutSeconds *int     `json:"timeout_seconds"`
	RetryCount     *int     `json:"retry_count"`
}

// Sign returns the hex HMAC-SHA256 of body keyed by secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
