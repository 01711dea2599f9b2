package webhooks

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/JaimeStill/archivist/pkg/query"
	"github.com/JaimeStill/archivist/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "webhooks", "w").
	Project("id", "ID").
	Project("name", "Name").
	Project("url", "URL").
	Project("secret", "Secret").
	Project("is_active", "IsActive").
	Project("events", "Events").
	Project("timeout_seconds", "TimeoutSeconds").
	Project("retry_count", "RetryCount").
	Project("last_triggered_at", "LastTriggeredAt").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "Name"}

var logProjection = query.
	NewProjectionMap("public", "webhook_logs", "l").
	Project("id", "ID").
	Project("webhook_id", "WebhookID").
	Project("event", "Event").
	Project("payload", "Payload").
	Project("response_code", "ResponseCode").
	Project("response_body", "ResponseBody").
	Project("error_message", "ErrorMessage").
	Project("attempt", "Attempt").
	Project("execution_time_ms", "ExecutionTimeMs").
	Project("executed_at", "ExecutedAt")

var logSort = query.SortField{Field: "ExecutedAt", Descending: true}

const subscribedClause = "w.events @> jsonb_build_array($%d::text)"

// Filters contains optional filtering criteria for webhook queries.
type Filters struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	Event    *string `json:"event,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.WhereContains("Name", f.Name).
		WhereEquals("IsActive", f.IsActive)

	if f.Event != nil && *f.Event != "" {
		b.WhereClause(subscribedClause, *f.Event)
	}

	return b
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}

	if a := values.Get("is_active"); a != "" {
		if v, err := strconv.ParseBool(a); err == nil {
			f.IsActive = &v
		}
	}

	if e := values.Get("event"); e != "" {
		f.Event = &e
	}

	return f
}

func scanWebhook(s repository.Scanner) (Webhook, error) {
	var w Webhook
	var events []byte

	err := s.Scan(
		&w.ID,
		&w.Name,
		&w.URL,
		&w.Secret,
		&w.IsActive,
		&events,
		&w.TimeoutSeconds,
		&w.RetryCount,
		&w.LastTriggeredAt,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return w, err
	}

	if len(events) > 0 {
		if err := json.Unmarshal(events, &w.Events); err != nil {
			return w, fmt.Errorf("unmarshal events: %w", err)
		}
	}
	if w.Events == nil {
		w.Events = []string{}
	}

	return w, nil
}

func scanLog(s repository.Scanner) (Log, error) {
	var l Log
	var payload []byte

	err := s.Scan(
		&l.ID,
		&l.WebhookID,
		&l.Event,
		&payload,
		&l.ResponseCode,
		&l.ResponseBody,
		&l.ErrorMessage,
		&l.Attempt,
		&l.ExecutionTimeMs,
		&l.ExecutedAt,
	)
	l.Payload = json.RawMessage(payload)
	return l, err
}
