// Package workflows implements trigger, condition, and action automation over documents.
// Enabled workflows run in order when a document is added, modified, or reaches a
// scheduled date, and every executed action is recorded in an append-only log.
package workflows

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/internal/documents"
)

// Trigger types. They double as the events accepted by the Engine.
const (
	EventDocumentAdded    = documents.EventAdded
	EventDocumentModified = documents.EventModified
	EventScheduled        = "scheduled"
)

// EventExecuted is the notification emitted after a workflow fires.
const EventExecuted = "workflow.executed"

// Execution log statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ValidEvent reports whether event is an accepted trigger type.
func ValidEvent(event string) bool {
	switch event {
	case EventDocumentAdded, EventDocumentModified, EventScheduled:
		return true
	default:
		return false
	}
}

// Workflow is an ordered automation rule with its triggers and actions.
type Workflow struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Enabled     bool      `json:"enabled"`
	OrderIndex  int       `json:"order_index"`
	Triggers    []Trigger `json:"triggers"`
	Actions     []Action  `json:"actions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Trigger starts a workflow when its type equals the event and its condition holds.
// The schedule fields apply to scheduled triggers only.
type Trigger struct {
	ID                            uuid.UUID           `json:"id"`
	WorkflowID                    uuid.UUID           `json:"workflow_id"`
	TriggerType                   string              `json:"trigger_type"`
	ConditionType                 string              `json:"condition_type"`
	ConditionValue                string              `json:"condition_value"`
	ScheduleDateField             documents.DateField `json:"schedule_date_field"`
	ScheduleCustomField           string              `json:"schedule_custom_field"`
	ScheduleOffsetDays            int                 `json:"schedule_offset_days"`
	ScheduleIsRecurring           bool                `json:"schedule_is_recurring"`
	ScheduleRecurringIntervalDays int                 `json:"schedule_recurring_interval_days"`
}

// Condition parses the stored condition.
func (t Trigger) Condition() Condition {
	return ParseCondition(t.ConditionType, t.ConditionValue)
}

// Action is one step of a workflow, executed in Position order.
type Action struct {
	ID          uuid.UUID `json:"id"`
	WorkflowID  uuid.UUID `json:"workflow_id"`
	Position    int       `json:"position"`
	ActionType  string    `json:"action_type"`
	ActionValue string    `json:"action_value"`
}

// Operation parses the stored action.
func (a Action) Operation() Operation {
	return ParseOperation(a.ActionType, a.ActionValue)
}

// Fires returns the first trigger of w matching ev whose condition holds for doc,
// or nil when the workflow does not fire. A trigger id on ev restricts the search
// to that trigger.
func (w *Workflow) Fires(ev Event, doc *documents.Document) *Trigger {
	for i := range w.Triggers {
		t := &w.Triggers[i]
		if t.TriggerType != ev.Type {
			continue
		}
		if ev.TriggerID != nil && t.ID != *ev.TriggerID {
			continue
		}
		if Evaluate(t.Condition(), doc) {
			return t
		}
	}
	return nil
}

// ScheduledTriggers returns the scheduled triggers of w.
func (w *Workflow) ScheduledTriggers() []Trigger {
	out := make([]Trigger, 0)
	for _, t := range w.Triggers {
		if t.TriggerType == EventScheduled {
			out = append(out, t)
		}
	}
	return out
}

func (w *Workflow) orderedActions() []Action {
	actions := slices.Clone(w.Actions)
	slices.SortStableFunc(actions, func(a, b Action) int { return a.Position - b.Position })
	return actions
}

// ExecutionLog records the outcome of one executed action.
type ExecutionLog struct {
	ID         uuid.UUID       `json:"id"`
	WorkflowID uuid.UUID       `json:"workflow_id"`
	DocumentID uuid.UUID       `json:"document_id"`
	Status     string          `json:"status"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	ExecutedAt time.Time       `json:"executed_at"`
}

// TriggerInput describes a trigger in a create or update command.
type TriggerInput struct {
	TriggerType                   string              `json:"trigger_type"`
	ConditionType                 string              `json:"condition_type"`
	ConditionValue                string              `json:"condition_value"`
	ScheduleDateField             documents.DateField `json:"schedule_date_field"`
	ScheduleCustomField           string              `json:"schedule_custom_field"`
	ScheduleOffsetDays            int                 `json:"schedule_offset_days"`
	ScheduleIsRecurring           bool                `json:"schedule_is_recurring"`
	ScheduleRecurringIntervalDays int                 `json:"schedule_recurring_interval_days"`
}

// ActionInput describes an action in a create or update command.
// Actions are positioned in the order given.
type ActionInput struct {
	ActionType  string `json:"action_type"`
	ActionValue string `json:"action_value"`
}

// CreateCommand contains the fields for creating a workflow.
type CreateCommand struct {
	Name        string         `json:"name"`
	Description *string        `json:"description,omitempty"`
	Enabled     *bool          `json:"enabled,omitempty"`
	OrderIndex  int            `json:"order_index"`
	Triggers    []TriggerInput `json:"triggers"`
	Actions     []ActionInput  `json:"actions"`
}

// UpdateCommand contains the fields for updating a workflow.
// Nil fields are left unchanged. Non-nil Triggers or Actions replace the stored set.
type UpdateCommand struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Enabled     *bool          `json:"enabled,omitempty"`
	OrderIndex  *int           `json:"order_index,omitempty"`
	Triggers    []TriggerInput `json:"triggers,omitempty"`
	Actions     []ActionInput  `json:"actions,omitempty"`
}
