package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JaimeStill/archivist/internal/documents"
	"github.com/JaimeStill/archivist/internal/documents/docstest"
	"github.com/JaimeStill/archivist/internal/observability"
	"github.com/JaimeStill/archivist/internal/scheduler"
	"github.com/JaimeStill/archivist/internal/workflows"
)

var now = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return now }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWorkflows struct {
	mu       sync.Mutex
	flows    []workflows.Workflow
	listErr  error
	last     map[uuid.UUID]time.Time
	lastErr  error
	failDocs map[uuid.UUID]error
	executed []workflows.Event
}

func (f *fakeWorkflows) ListScheduled(context.Context) ([]workflows.Workflow, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.flows, nil
}

func (f *fakeWorkflows) LastSuccess(_ context.Context, _, documentID uuid.UUID) (*time.Time, error) {
	if f.lastErr != nil {
		return nil, f.lastErr
	}
	if t, ok := f.last[documentID]; ok {
		return &t, nil
	}
	return nil, nil
}

func (f *fakeWorkflows) Execute(_ context.Context, ev workflows.Event) (*workflows.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failDocs[ev.DocumentID]; err != nil {
		return nil, err
	}
	f.executed = append(f.executed, ev)
	return &workflows.Report{
		Event:      ev.Type,
		DocumentID: ev.DocumentID,
		Runs: []workflows.Run{{
			WorkflowID: *ev.WorkflowID,
			TriggerID:  *ev.TriggerID,
			Actions:    []workflows.Outcome{{Status: workflows.StatusSuccess}},
		}},
	}, nil
}

func (f *fakeWorkflows) executedDocs() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uuid.UUID, len(f.executed))
	for i, ev := range f.executed {
		ids[i] = ev.DocumentID
	}
	return ids
}

func scheduledWorkflow(triggers ...workflows.Trigger) workflows.Workflow {
	id := uuid.New()
	for i := range triggers {
		triggers[i].ID = uuid.New()
		triggers[i].WorkflowID = id
		triggers[i].TriggerType = workflows.EventScheduled
		if triggers[i].ScheduleDateField == "" {
			triggers[i].ScheduleDateField = documents.DateCreated
		}
	}
	return workflows.Workflow{ID: id, Name: "scheduled", Enabled: true, Triggers: triggers}
}

func docCreated(daysAgo int) documents.Document {
	created := now.AddDate(0, 0, -daysAgo)
	return documents.Document{ID: uuid.New(), CreatedAt: created, UpdatedAt: created}
}

func TestTargetDate(t *testing.T) {
	plusTwo := time.FixedZone("UTC+2", 2*60*60)

	tests := []struct {
		name   string
		now    time.Time
		loc    *time.Location
		offset int
		want   string
	}{
		{"today", now, time.UTC, 0, "2026-03-10"},
		{"week ago", now, time.UTC, -7, "2026-03-03"},
		{"ahead", now, time.UTC, 3, "2026-03-13"},
		{"across month", now, time.UTC, -10, "2026-02-28"},
		{"location changes today", time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC), plusTwo, 0, "2026-03-11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scheduler.TargetDate(tt.now, tt.loc, tt.offset)
			if d := got.Format(time.DateOnly); d != tt.want {
				t.Errorf("TargetDate() = %s, want %s", d, tt.want)
			}
			if got.Hour() != 0 || got.Minute() != 0 {
				t.Errorf("TargetDate() = %v, want midnight", got)
			}
		})
	}
}

func TestProcessDueOffset(t *testing.T) {
	weekOld := docCreated(7)
	sixDays := docCreated(6)
	fresh := docCreated(0)
	docs := docstest.New(weekOld, sixDays, fresh)

	wf := scheduledWorkflow(workflows.Trigger{ScheduleOffsetDays: -7})
	flows := &fakeWorkflows{flows: []workflows.Workflow{wf}}

	executedBefore := testutil.ToFloat64(observability.ScheduledRuns.WithLabelValues("executed"))

	sys := scheduler.New(flows, docs, scheduler.Config{}, discard(), scheduler.WithClock(clock))
	summary := sys.ProcessDue(context.Background())

	if got := flows.executedDocs(); !slices.Equal(got, []uuid.UUID{weekOld.ID}) {
		t.Fatalf("executed = %v, want only the document dated today - 7", got)
	}

	ev := flows.executed[0]
	if ev.Type != workflows.EventScheduled {
		t.Errorf("event = %q, want scheduled", ev.Type)
	}
	if *ev.WorkflowID != wf.ID || *ev.TriggerID != wf.Triggers[0].ID {
		t.Errorf("event scope = %v/%v, want %s/%s", *ev.WorkflowID, *ev.TriggerID, wf.ID, wf.Triggers[0].ID)
	}

	if summary.Workflows != 1 || summary.Triggers != 1 || summary.Candidates != 1 || summary.Executed != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.Results) != 1 || !summary.Results[0].Fired || summary.Results[0].Actions != 1 {
		t.Errorf("results = %+v", summary.Results)
	}

	if d := testutil.ToFloat64(observability.ScheduledRuns.WithLabelValues("executed")) - executedBefore; d != 1 {
		t.Errorf("executed metric delta = %v, want 1", d)
	}
}

func TestProcessDueDateFields(t *testing.T) {
	modified := documents.Document{
		ID:        uuid.New(),
		CreatedAt: now.AddDate(0, -2, 0),
		UpdatedAt: now.AddDate(0, 0, -1),
	}
	renewal := docCreated(90)
	docs := docstest.New(modified, renewal)
	docs.SetCustomDate(renewal.ID, "renewal_date", now.AddDate(0, 0, 30))

	flows := &fakeWorkflows{flows: []workflows.Workflow{
		scheduledWorkflow(workflows.Trigger{ScheduleDateField: documents.DateModified, ScheduleOffsetDays: -1}),
		scheduledWorkflow(workflows.Trigger{
			ScheduleDateField:   documents.DateCustomField,
			ScheduleCustomField: "renewal_date",
			ScheduleOffsetDays:  30,
		}),
	}}

	sys := scheduler.New(flows, docs, scheduler.Config{}, discard(), scheduler.WithClock(clock))
	summary := sys.ProcessDue(context.Background())

	got := flows.executedDocs()
	if want := []uuid.UUID{modified.ID, renewal.ID}; !slices.Equal(got, want) {
		t.Errorf("executed = %v, want %v", got, want)
	}
	if summary.Triggers != 2 {
		t.Errorf("triggers = %d, want 2", summary.Triggers)
	}
}

type recordingDocs struct {
	*docstest.Store
	dates []time.Time
}

func (r *recordingDocs) FindIDsByDate(ctx context.Context, field documents.DateField, custom string, date time.Time) ([]uuid.UUID, error) {
	r.dates = append(r.dates, date)
	return r.Store.FindIDsByDate(ctx, field, custom, date)
}

func TestProcessDueUsesConfiguredZone(t *testing.T) {
	zurich, err := time.LoadLocation("Europe/Zurich")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	lateEvening := time.Date(2026, time.March, 8, 23, 30, 0, 0, time.UTC)
	midday := time.Date(2026, time.March, 8, 12, 0, 0, 0, time.UTC)

	localTomorrow := documents.Document{ID: uuid.New(), CreatedAt: lateEvening, UpdatedAt: lateEvening}
	localToday := documents.Document{ID: uuid.New(), CreatedAt: midday, UpdatedAt: midday}
	docs := &recordingDocs{Store: docstest.New(localTomorrow, localToday)}

	flows := &fakeWorkflows{flows: []workflows.Workflow{scheduledWorkflow(workflows.Trigger{})}}

	sys := scheduler.New(flows, docs, scheduler.Config{Location: zurich}, discard(),
		scheduler.WithClock(func() time.Time { return lateEvening }))
	sys.ProcessDue(context.Background())

	if len(docs.dates) != 1 || docs.dates[0].Location() != zurich {
		t.Fatalf("candidate dates = %v, want one date in Europe/Zurich", docs.dates)
	}
	if got := docs.dates[0].Format(time.DateOnly); got != "2026-03-09" {
		t.Errorf("target day = %s, want 2026-03-09", got)
	}
	if got := flows.executedDocs(); !slices.Equal(got, []uuid.UUID{localTomorrow.ID}) {
		t.Errorf("executed = %v, want only the document created on the local day", got)
	}
}

func TestProcessDueIsolatesFailures(t *testing.T) {
	bad := docCreated(0)
	good := docCreated(0)
	docs := docstest.New(bad, good)

	flows := &fakeWorkflows{
		flows:    []workflows.Workflow{scheduledWorkflow(workflows.Trigger{})},
		failDocs: map[uuid.UUID]error{bad.ID: errors.New("lock acquisition timed out")},
	}

	sys := scheduler.New(flows, docs, scheduler.Config{}, discard(), scheduler.WithClock(clock))
	summary := sys.ProcessDue(context.Background())

	if got := flows.executedDocs(); !slices.Equal(got, []uuid.UUID{good.ID}) {
		t.Errorf("executed = %v, want the healthy document", got)
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("failures = %+v, want 1", summary.Failures)
	}
	if f := summary.Failures[0]; f.DocumentID == nil || *f.DocumentID != bad.ID || f.Error == "" {
		t.Errorf("failure = %+v", f)
	}

	t.Run("candidate lookup fails", func(t *testing.T) {
		docs.Fail["FindIDsByDate"] = errors.New("relation does not exist")
		defer delete(docs.Fail, "FindIDsByDate")

		summary := sys.ProcessDue(context.Background())
		if len(summary.Failures) != 1 || summary.Failures[0].TriggerID == nil {
			t.Errorf("failures = %+v, want one trigger failure", summary.Failures)
		}
	})

	t.Run("listing fails", func(t *testing.T) {
		failing := &fakeWorkflows{listErr: errors.New("connection refused")}
		sys := scheduler.New(failing, docs, scheduler.Config{}, discard(), scheduler.WithClock(clock))

		summary := sys.ProcessDue(context.Background())
		if len(summary.Failures) != 1 || summary.Workflows != 0 {
			t.Errorf("summary = %+v", summary)
		}
	})
}

func TestShouldExecuteIgnoresRecurrenceByDefault(t *testing.T) {
	doc := uuid.New()
	flows := &fakeWorkflows{last: map[uuid.UUID]time.Time{doc: now.Add(-time.Hour)}}
	sys := scheduler.New(flows, docstest.New(), scheduler.Config{}, discard(), scheduler.WithClock(clock))

	trigger := workflows.Trigger{ScheduleIsRecurring: true, ScheduleRecurringIntervalDays: 30}

	ok, err := sys.ShouldExecute(context.Background(), trigger, doc)
	if err != nil || !ok {
		t.Errorf("ShouldExecute() = %v, %v; want true without enforce_recurrence", ok, err)
	}
}

func TestShouldExecuteEnforcedRecurrence(t *testing.T) {
	never := uuid.New()
	recent := uuid.New()
	weekAgo := uuid.New()

	flows := &fakeWorkflows{last: map[uuid.UUID]time.Time{
		recent:  now.AddDate(0, 0, -3),
		weekAgo: now.AddDate(0, 0, -7),
	}}

	sys := scheduler.New(flows, docstest.New(), scheduler.Config{EnforceRecurrence: true}, discard(), scheduler.WithClock(clock))

	weekly := workflows.Trigger{ScheduleIsRecurring: true, ScheduleRecurringIntervalDays: 7}
	once := workflows.Trigger{}
	noInterval := workflows.Trigger{ScheduleIsRecurring: true}

	tests := []struct {
		name    string
		trigger workflows.Trigger
		doc     uuid.UUID
		want    bool
	}{
		{"never executed", weekly, never, true},
		{"within interval", weekly, recent, false},
		{"interval elapsed", weekly, weekAgo, true},
		{"one-shot already executed", once, recent, false},
		{"one-shot never executed", once, never, true},
		{"recurring without interval", noInterval, weekAgo, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sys.ShouldExecute(context.Background(), tt.trigger, tt.doc)
			if err != nil {
				t.Fatalf("ShouldExecute() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ShouldExecute() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("lookup error", func(t *testing.T) {
		flows.lastErr = errors.New("timeout")
		defer func() { flows.lastErr = nil }()

		if _, err := sys.ShouldExecute(context.Background(), weekly, never); err == nil {
			t.Error("expected lookup error")
		}
	})
}

func TestProcessDueSkipsWithinInterval(t *testing.T) {
	doc := docCreated(0)
	docs := docstest.New(doc)

	flows := &fakeWorkflows{
		flows: []workflows.Workflow{scheduledWorkflow(workflows.Trigger{
			ScheduleIsRecurring:           true,
			ScheduleRecurringIntervalDays: 7,
		})},
		last: map[uuid.UUID]time.Time{doc.ID: now.AddDate(0, 0, -1)},
	}

	sys := scheduler.New(flows, docs, scheduler.Config{EnforceRecurrence: true}, discard(), scheduler.WithClock(clock))
	summary := sys.ProcessDue(context.Background())

	if summary.Skipped != 1 || summary.Executed != 0 {
		t.Errorf("summary = %+v, want one skipped candidate", summary)
	}
}
