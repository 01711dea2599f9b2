package workflows

import (
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/pkg/query"
	"github.com/JaimeStill/archivist/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "workflows", "w").
	Project("id", "ID").
	Project("name", "Name").
	Project("description", "Description").
	Project("enabled", "Enabled").
	Project("order_index", "OrderIndex").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = []query.SortField{
	{Field: "OrderIndex"},
	{Field: "Name"},
}

var triggerProjection = query.
	NewProjectionMap("public", "workflow_triggers", "t").
	Project("id", "ID").
	Project("workflow_id", "WorkflowID").
	Project("trigger_type", "TriggerType").
	Project("condition_type", "ConditionType").
	Project("condition_value", "ConditionValue").
	Project("schedule_date_field", "ScheduleDateField").
	Project("schedule_custom_field", "ScheduleCustomField").
	Project("schedule_offset_days", "ScheduleOffsetDays").
	Project("schedule_is_recurring", "ScheduleIsRecurring").
	Project("schedule_recurring_interval_days", "ScheduleRecurringIntervalDays")

var actionProjection = query.
	NewProjectionMap("public", "workflow_actions", "a").
	Project("id", "ID").
	Project("workflow_id", "WorkflowID").
	Project("position", "Position").
	Project("action_type", "ActionType").
	Project("action_value", "ActionValue")

var logProjection = query.
	NewProjectionMap("public", "workflow_execution_logs", "l").
	Project("id", "ID").
	Project("workflow_id", "WorkflowID").
	Project("document_id", "DocumentID").
	Project("status", "Status").
	Project("message", "Message").
	Project("data", "Data").
	Project("executed_at", "ExecutedAt")

var logSort = query.SortField{Field: "ExecutedAt", Descending: true}

const scheduledClause = "EXISTS (SELECT 1 FROM public.workflow_triggers st WHERE st.workflow_id = w.id AND st.trigger_type = $%d)"

// Filters contains optional filtering criteria for workflow queries.
type Filters struct {
	Name    *string `json:"name,omitempty"`
	Enabled *bool   `json:"enabled,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereContains("Name", f.Name).
		WhereEquals("Enabled", f.Enabled)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}

	if e := values.Get("enabled"); e != "" {
		if v, err := strconv.ParseBool(e); err == nil {
			f.Enabled = &v
		}
	}

	return f
}

// LogFilters contains optional filtering criteria for execution log queries.
type LogFilters struct {
	WorkflowID *uuid.UUID `json:"workflow_id,omitempty"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	Status     *string    `json:"status,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f LogFilters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("WorkflowID", f.WorkflowID).
		WhereEquals("DocumentID", f.DocumentID).
		WhereEquals("Status", f.Status)
}

// LogFiltersFromQuery extracts log filter values from URL query parameters.
func LogFiltersFromQuery(values url.Values) LogFilters {
	var f LogFilters

	if w := values.Get("workflow_id"); w != "" {
		if id, err := uuid.Parse(w); err == nil {
			f.WorkflowID = &id
		}
	}

	if d := values.Get("document_id"); d != "" {
		if id, err := uuid.Parse(d); err == nil {
			f.DocumentID = &id
		}
	}

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	return f
}

func scanWorkflow(s repository.Scanner) (Workflow, error) {
	var w Workflow
	err := s.Scan(
		&w.ID,
		&w.Name,
		&w.Description,
		&w.Enabled,
		&w.OrderIndex,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	w.Triggers = []Trigger{}
	w.Actions = []Action{}
	return w, err
}

func scanTrigger(s repository.Scanner) (Trigger, error) {
	var t Trigger
	err := s.Scan(
		&t.ID,
		&t.WorkflowID,
		&t.TriggerType,
		&t.ConditionType,
		&t.ConditionValue,
		&t.ScheduleDateField,
		&t.ScheduleCustomField,
		&t.ScheduleOffsetDays,
		&t.ScheduleIsRecurring,
		&t.ScheduleRecurringIntervalDays,
	)
	return t, err
}

func scanAction(s repository.Scanner) (Action, error) {
	var a Action
	err := s.Scan(
		&a.ID,
		&a.WorkflowID,
		&a.Position,
		&a.ActionType,
		&a.ActionValue,
	)
	return a, err
}

func scanLog(s repository.Scanner) (ExecutionLog, error) {
	var l ExecutionLog
	var data []byte
	err := s.Scan(
		&l.ID,
		&l.WorkflowID,
		&l.DocumentID,
		&l.Status,
		&l.Message,
		&data,
		&l.ExecutedAt,
	)
	l.Data = json.RawMessage(data)
	return l, err
}
