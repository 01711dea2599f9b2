// Package scheduler runs workflows whose scheduled triggers fall due.
// A scan resolves each scheduled trigger to a calendar day, selects the
// documents dated on that day, and executes the owning workflow for each.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/internal/documents"
	"github.com/JaimeStill/archivist/internal/observability"
	"github.com/JaimeStill/archivist/internal/workflows"
)

// Workflows is the workflow surface the scheduler depends on.
type Workflows interface {
	ListScheduled(ctx context.Context) ([]workflows.Workflow, error)
	LastSuccess(ctx context.Context, workflowID, documentID uuid.UUID) (*time.Time, error)
	Execute(ctx context.Context, ev workflows.Event) (*workflows.Report, error)
}

// Documents selects scheduled candidates by date.
type Documents interface {
	FindIDsByDate(ctx context.Context, field documents.DateField, customField string, date time.Time) ([]uuid.UUID, error)
}

// Config controls how due dates are computed and approved.
type Config struct {
	// Location defines "today". Defaults to UTC.
	Location *time.Location
	// EnforceRecurrence makes ShouldExecute consult the last successful
	// execution: recurring triggers wait out their interval and one-shot
	// triggers run once per document. When false every candidate is approved.
	EnforceRecurrence bool
}

// Result describes one evaluated candidate.
type Result struct {
	WorkflowID uuid.UUID `json:"workflow_id"`
	TriggerID  uuid.UUID `json:"trigger_id"`
	DocumentID uuid.UUID `json:"document_id"`
	Fired      bool      `json:"fired"`
	Actions    int       `json:"actions"`
}

// Failure records an error isolated during a scan.
type Failure struct {
	WorkflowID uuid.UUID  `json:"workflow_id"`
	TriggerID  *uuid.UUID `json:"trigger_id,omitempty"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	Error      string     `json:"error"`
}

// Summary reports the outcome of ProcessDue.
type Summary struct {
	StartedAt  time.Time `json:"started_at"`
	Workflows  int       `json:"workflows"`
	Triggers   int       `json:"triggers"`
	Candidates int       `json:"candidates"`
	Executed   int       `json:"executed"`
	Skipped    int       `json:"skipped"`
	Results    []Result  `json:"results"`
	Failures   []Failure `json:"failures"`
}

// System defines the public contract for scheduled workflow processing.
type System interface {
	Handler() *Handler

	// ProcessDue runs every due scheduled trigger. Failures are collected in
	// the summary and never stop the scan.
	ProcessDue(ctx context.Context) *Summary

	// ShouldExecute reports whether trigger may run for the document now.
	ShouldExecute(ctx context.Context, trigger workflows.Trigger, documentID uuid.UUID) (bool, error)
}

// Option configures a Scheduler.
type Option func(*scheduler)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *scheduler) { s.now = now }
}

type scheduler struct {
	flows  Workflows
	docs   Documents
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a scheduler System.
func New(flows Workflows, docs Documents, cfg Config, logger *slog.Logger, opts ...Option) System {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	s := &scheduler{
		flows:  flows,
		docs:   docs,
		cfg:    cfg,
		logger: logger.With("system", "scheduler"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *scheduler) Handler() *Handler {
	return NewHandler(s, s.logger)
}

// TargetDate returns midnight of the day offsetDays after the current day in loc.
func TargetDate(now time.Time, loc *time.Location, offsetDays int) time.Time {
	t := now.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day()+offsetDays, 0, 0, 0, 0, loc)
}

func (s *scheduler) ProcessDue(ctx context.Context) *Summary {
	summary := &Summary{
		StartedAt: s.now(),
		Results:   []Result{},
		Failures:  []Failure{},
	}

	flows, err := s.flows.ListScheduled(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "list scheduled workflows failed", "error", err)
		summary.Failures = append(summary.Failures, Failure{Error: err.Error()})
		observability.ScheduledRuns.WithLabelValues("error").Inc()
		return summary
	}

	summary.Workflows = len(flows)

	for _, wf := range flows {
		for _, trigger := range wf.ScheduledTriggers() {
			summary.Triggers++
			s.processTrigger(ctx, wf, trigger, summary)
		}
	}

	s.logger.InfoContext(ctx, "scheduled scan completed",
		"workflows", summary.Workflows,
		"triggers", summary.Triggers,
		"candidates", summary.Candidates,
		"executed", summary.Executed,
		"skipped", summary.Skipped,
		"failures", len(summary.Failures),
	)

	return summary
}

func (s *scheduler) processTrigger(ctx context.Context, wf workflows.Workflow, trigger workflows.Trigger, summary *Summary) {
	triggerID := trigger.ID
	target := TargetDate(s.now(), s.cfg.Location, trigger.ScheduleOffsetDays)

	ids, err := s.docs.FindIDsByDate(ctx, trigger.ScheduleDateField, trigger.ScheduleCustomField, target)
	if err != nil {
		s.fail(ctx, summary, Failure{
			WorkflowID: wf.ID,
			TriggerID:  &triggerID,
			Error:      fmt.Sprintf("find candidates: %v", err),
		})
		return
	}

	summary.Candidates += len(ids)

	for _, docID := range ids {
		documentID := docID

		ok, err := s.ShouldExecute(ctx, trigger, docID)
		if err != nil {
			s.fail(ctx, summary, Failure{
				WorkflowID: wf.ID,
				TriggerID:  &triggerID,
				DocumentID: &documentID,
				Error:      fmt.Sprintf("check recurrence: %v", err),
			})
			continue
		}
		if !ok {
			summary.Skipped++
			observability.ScheduledRuns.WithLabelValues("skipped").Inc()
			continue
		}

		report, err := s.flows.Execute(ctx, workflows.Event{
			Type:       workflows.EventScheduled,
			DocumentID: docID,
			WorkflowID: &wf.ID,
			TriggerID:  &triggerID,
		})
		if err != nil {
			s.fail(ctx, summary, Failure{
				WorkflowID: wf.ID,
				TriggerID:  &triggerID,
				DocumentID: &documentID,
				Error:      err.Error(),
			})
			continue
		}

		result := Result{
			WorkflowID: wf.ID,
			TriggerID:  triggerID,
			DocumentID: docID,
		}
		for _, run := range report.Runs {
			result.Fired = true
			result.Actions += len(run.Actions)
		}

		summary.Executed++
		summary.Results = append(summary.Results, result)
		observability.ScheduledRuns.WithLabelValues("executed").Inc()
	}
}

func (s *scheduler) ShouldExecute(ctx context.Context, trigger workflows.Trigger, documentID uuid.UUID) (bool, error) {
	if !s.cfg.EnforceRecurrence {
		return true, nil
	}

	last, err := s.flows.LastSuccess(ctx, trigger.WorkflowID, documentID)
	if err != nil {
		return false, err
	}
	if last == nil {
		return true, nil
	}

	if !trigger.ScheduleIsRecurring || trigger.ScheduleRecurringIntervalDays <= 0 {
		return false, nil
	}

	interval := time.Duration(trigger.ScheduleRecurringIntervalDays) * 24 * time.Hour
	return !s.now().Before(last.Add(interval)), nil
}

func (s *scheduler) fail(ctx context.Context, summary *Summary, f Failure) {
	s.logger.WarnContext(ctx, "scheduled workflow failed",
		"workflow_id", f.WorkflowID,
		"trigger_id", f.TriggerID,
		"document_id", f.DocumentID,
		"error", f.Error,
	)
	summary.Failures = append(summary.Failures, f)
	observability.ScheduledRuns.WithLabelValues("error").Inc()
}
