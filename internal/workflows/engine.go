package workflows

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/internal/documents"
	"github.com/JaimeStill/archivist/internal/observability"
	"github.com/JaimeStill/archivist/pkg/keylock"
)

// Document notification events emitted when a lifecycle event is raised.
const (
	NotifyDocumentAdded    = "document.added"
	NotifyDocumentModified = "document.modified"
)

// Store supplies workflows to the Engine and records execution logs.
type Store interface {
	// ListEnabled returns enabled workflows with their triggers and actions.
	ListEnabled(ctx context.Context) ([]Workflow, error)
	Find(ctx context.Context, id uuid.UUID) (*Workflow, error)
	InsertLog(ctx context.Context, l *ExecutionLog) error
}

// Notifier receives workflow and document notifications.
type Notifier interface {
	Trigger(ctx context.Context, event string, data any)
}

// Event asks the Engine to evaluate workflows for one document.
// WorkflowID and TriggerID narrow evaluation to a single workflow or trigger.
type Event struct {
	Type       string     `json:"type"`
	DocumentID uuid.UUID  `json:"document_id"`
	WorkflowID *uuid.UUID `json:"workflow_id,omitempty"`
	TriggerID  *uuid.UUID `json:"trigger_id,omitempty"`
}

// Outcome is the result of one executed action.
type Outcome struct {
	ActionID   uuid.UUID `json:"action_id"`
	ActionType string    `json:"action_type"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
}

// Run describes a workflow that fired.
type Run struct {
	WorkflowID   uuid.UUID `json:"workflow_id"`
	WorkflowName string    `json:"workflow_name"`
	TriggerID    uuid.UUID `json:"trigger_id"`
	Actions      []Outcome `json:"actions"`
}

// Failed counts the actions of r that did not succeed.
func (r Run) Failed() int {
	n := 0
	for _, o := range r.Actions {
		if o.Status != StatusSuccess {
			n++
		}
	}
	return n
}

// Report summarizes an Engine.Execute call.
type Report struct {
	Event      string    `json:"event"`
	DocumentID uuid.UUID `json:"document_id"`
	Runs       []Run     `json:"runs"`
}

// Engine evaluates workflows against documents and executes their actions.
// Executions for the same document are serialized through the Locker.
type Engine struct {
	store    Store
	docs     documents.System
	locker   keylock.Locker
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewEngine creates an Engine. notifier may be nil.
func NewEngine(
	store Store,
	docs documents.System,
	locker keylock.Locker,
	notifier Notifier,
	logger *slog.Logger,
) *Engine {
	if locker == nil {
		locker = keylock.NewMemory()
	}
	return &Engine{
		store:    store,
		docs:     docs,
		locker:   locker,
		notifier: notifier,
		logger:   logger.With("system", "workflow-engine"),
		now:      time.Now,
	}
}

// Execute runs every enabled workflow that fires for ev. Action failures are
// logged and reported but never returned; only failures to load the document
// or the workflows are errors.
func (e *Engine) Execute(ctx context.Context, ev Event) (*Report, error) {
	if !ValidEvent(ev.Type) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEvent, ev.Type)
	}

	unlock, err := e.locker.Lock(ctx, ev.DocumentID.String())
	if err != nil {
		return nil, fmt.Errorf("lock document %s: %w", ev.DocumentID, err)
	}
	defer unlock()

	doc, err := e.docs.Find(ctx, ev.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("find document %s: %w", ev.DocumentID, err)
	}

	flows, err := e.candidates(ctx, ev)
	if err != nil {
		return nil, err
	}

	report := &Report{Event: ev.Type, DocumentID: ev.DocumentID, Runs: []Run{}}

	for _, wf := range flows {
		trigger := wf.Fires(ev, doc)
		if trigger == nil {
			continue
		}

		run := e.run(ctx, ev, &wf, trigger)
		report.Runs = append(report.Runs, run)
		e.notify(ctx, EventExecuted, map[string]any{
			"workflow_id":   run.WorkflowID,
			"workflow_name": run.WorkflowName,
			"trigger_id":    run.TriggerID,
			"document_id":   ev.DocumentID,
			"event":         ev.Type,
			"actions":       run.Actions,
		})

		if len(run.Actions) > 0 {
			if refreshed, err := e.docs.Find(ctx, ev.DocumentID); err == nil {
				doc = refreshed
			}
		}
	}

	e.logger.InfoContext(ctx, "workflows evaluated",
		"event", ev.Type,
		"document_id", ev.DocumentID,
		"candidates", len(flows),
		"fired", len(report.Runs),
	)

	return report, nil
}

// Raise runs the workflows for a document lifecycle event and emits the
// matching document notification.
func (e *Engine) Raise(ctx context.Context, event string, id uuid.UUID) (any, error) {
	var notification string
	switch event {
	case EventDocumentAdded:
		notification = NotifyDocumentAdded
	case EventDocumentModified:
		notification = NotifyDocumentModified
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidEvent, event)
	}

	report, err := e.Execute(ctx, Event{Type: event, DocumentID: id})
	if err != nil {
		return nil, err
	}

	e.notify(ctx, notification, map[string]any{
		"document_id":     id,
		"workflows_fired": len(report.Runs),
	})

	return report, nil
}

func (e *Engine) candidates(ctx context.Context, ev Event) ([]Workflow, error) {
	if ev.WorkflowID != nil {
		wf, err := e.store.Find(ctx, *ev.WorkflowID)
		if err != nil {
			return nil, fmt.Errorf("find workflow %s: %w", *ev.WorkflowID, err)
		}
		if !wf.Enabled {
			return nil, nil
		}
		return []Workflow{*wf}, nil
	}

	flows, err := e.store.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}

	slices.SortStableFunc(flows, func(a, b Workflow) int {
		return cmp.Or(
			cmp.Compare(a.OrderIndex, b.OrderIndex),
			strings.Compare(a.Name, b.Name),
		)
	})
	return flows, nil
}

func (e *Engine) run(ctx context.Context, ev Event, wf *Workflow, trigger *Trigger) Run {
	run := Run{
		WorkflowID:   wf.ID,
		WorkflowName: wf.Name,
		TriggerID:    trigger.ID,
		Actions:      make([]Outcome, 0, len(wf.Actions)),
	}

	for _, action := range wf.orderedActions() {
		outcome := Outcome{ActionID: action.ID, ActionType: action.ActionType}

		msg, err := Perform(ctx, e.docs, ev.DocumentID, action.Operation())
		if err != nil {
			outcome.Status = StatusError
			outcome.Message = err.Error()
			e.logger.WarnContext(ctx, "workflow action failed",
				"workflow_id", wf.ID,
				"action_id", action.ID,
				"action_type", action.ActionType,
				"error", err,
			)
		} else {
			outcome.Status = StatusSuccess
			outcome.Message = msg
		}

		observability.WorkflowActions.WithLabelValues(action.ActionType, outcome.Status).Inc()
		e.record(ctx, ev, wf, trigger, action, outcome)
		run.Actions = append(run.Actions, outcome)
	}

	return run
}

func (e *Engine) record(
	ctx context.Context,
	ev Event,
	wf *Workflow,
	trigger *Trigger,
	action Action,
	outcome Outcome,
) {
	data, err := json.Marshal(map[string]any{
		"event":        ev.Type,
		"trigger_id":   trigger.ID,
		"action_id":    action.ID,
		"action_type":  action.ActionType,
		"action_value": action.ActionValue,
	})
	if err != nil {
		data = []byte("{}")
	}

	entry := &ExecutionLog{
		WorkflowID: wf.ID,
		DocumentID: ev.DocumentID,
		Status:     outcome.Status,
		Message:    outcome.Message,
		Data:       data,
		ExecutedAt: e.now(),
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := e.store.InsertLog(rctx, entry); err != nil {
		e.logger.ErrorContext(ctx, "record workflow execution failed",
			"workflow_id", wf.ID,
			"document_id", ev.DocumentID,
			"error", err,
		)
	}
}

func (e *Engine) notify(ctx context.Context, event string, data any) {
	if e.notifier == nil {
		return
	}
	e.notifier.Trigger(ctx, event, data)
}
