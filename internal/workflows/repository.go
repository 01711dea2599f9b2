package workflows

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/internal/documents"
	"github.com/JaimeStill/archivist/pkg/keylock"
	"github.com/JaimeStill/archivist/pkg/pagination"
	"github.com/JaimeStill/archivist/pkg/query"
	"github.com/JaimeStill/archivist/pkg/repository"
)

type repo struct {
	*Engine

	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a workflow repository implementing the System interface.
// Workflows are executed by an Engine backed by the same repository.
func New(
	db *sql.DB,
	docs documents.System,
	locker keylock.Locker,
	notifier Notifier,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	r := &repo{
		db:         db,
		logger:     logger.With("system", "workflows"),
		pagination: pagination,
	}
	r.Engine = NewEngine(r, docs, locker, notifier, logger)
	return r
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Workflow], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort...).
		WhereSearch(page.Search, "Name", "Description")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count workflows: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	flows, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanWorkflow)
	if err != nil {
		return nil, fmt.Errorf("query workflows: %w", err)
	}

	if err := r.attach(ctx, r.db, flows); err != nil {
		return nil, err
	}

	result := pagination.NewPageResult(flows, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Workflow, error) {
	return r.find(ctx, r.db, id)
}

func (r *repo) ListEnabled(ctx context.Context) ([]Workflow, error) {
	q, args := query.
		NewBuilder(projection, defaultSort...).
		WhereEquals("Enabled", true).
		Build()

	return r.listWith(ctx, q, args)
}

func (r *repo) ListScheduled(ctx context.Context) ([]Workflow, error) {
	q, args := query.
		NewBuilder(projection, defaultSort...).
		WhereEquals("Enabled", true).
		WhereClause(scheduledClause, EventScheduled).
		Build()

	return r.listWith(ctx, q, args)
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Workflow, error) {
	if err := validate(cmd.Name, cmd.Triggers, cmd.Actions); err != nil {
		return nil, err
	}

	enabled := true
	if cmd.Enabled != nil {
		enabled = *cmd.Enabled
	}

	q := `
		INSERT INTO workflows (name, description, enabled, order_index)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, description, enabled, order_index, created_at, updated_at`

	wf, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Workflow, error) {
		wf, err := repository.QueryOne(
			ctx, tx, q,
			[]any{cmd.Name, cmd.Description, enabled, cmd.OrderIndex},
			scanWorkflow,
		)
		if err != nil {
			return wf, err
		}
		if err := r.replaceChildren(ctx, tx, &wf, cmd.Triggers, cmd.Actions); err != nil {
			return wf, err
		}
		return wf, nil
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("workflow created", "id", wf.ID, "name", wf.Name, "triggers", len(wf.Triggers), "actions", len(wf.Actions))
	return &wf, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Workflow, error) {
	wf, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Workflow, error) {
		current, err := r.find(ctx, tx, id)
		if err != nil {
			return Workflow{}, err
		}

		next := *current
		if cmd.Name != nil {
			next.Name = *cmd.Name
		}
		if cmd.Description != nil {
			next.Description = cmd.Description
		}
		if cmd.Enabled != nil {
			next.Enabled = *cmd.Enabled
		}
		if cmd.OrderIndex != nil {
			next.OrderIndex = *cmd.OrderIndex
		}

		if err := validate(next.Name, cmd.Triggers, cmd.Actions); err != nil {
			return Workflow{}, err
		}

		q := `
			UPDATE workflows SET
				name = $1, description = $2, enabled = $3, order_index = $4, updated_at = NOW()
			WHERE id = $5
			RETURNING id, name, description, enabled, order_index, created_at, updated_at`

		updated, err := repository.QueryOne(
			ctx, tx, q,
			[]any{next.Name, next.Description, next.Enabled, next.OrderIndex, id},
			scanWorkflow,
		)
		if err != nil {
			return Workflow{}, err
		}

		updated.Triggers = current.Triggers
		updated.Actions = current.Actions

		triggers, actions := cmd.Triggers, cmd.Actions
		if triggers == nil && actions == nil {
			return updated, nil
		}
		if triggers == nil {
			triggers = inputsFromTriggers(current.Triggers)
		}
		if actions == nil {
			actions = inputsFromActions(current.Actions)
		}

		if err := r.replaceChildren(ctx, tx, &updated, triggers, actions); err != nil {
			return Workflow{}, err
		}
		return updated, nil
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("workflow updated", "id", wf.ID, "name", wf.Name)
	return &wf, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, "DELETE FROM workflows WHERE id = $1", id)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("workflow deleted", "id", id)
	return nil
}

func (r *repo) InsertLog(ctx context.Context, l *ExecutionLog) error {
	q := `
		INSERT INTO workflow_execution_logs (workflow_id, document_id, status, message, data, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, executed_at`

	data := string(l.Data)
	if data == "" {
		data = "{}"
	}

	executedAt := l.ExecutedAt
	if executedAt.IsZero() {
		executedAt = time.Now()
	}

	err := r.db.QueryRowContext(
		ctx, q,
		l.WorkflowID, l.DocumentID, l.Status, l.Message, data, executedAt,
	).Scan(&l.ID, &l.ExecutedAt)
	if err != nil {
		return fmt.Errorf("insert workflow log: %w", err)
	}
	return nil
}

func (r *repo) Logs(
	ctx context.Context,
	page pagination.PageRequest,
	filters LogFilters,
) (*pagination.PageResult[ExecutionLog], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(logProjection, logSort).
		WhereSearch(page.Search, "Message")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count workflow logs: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	logs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanLog)
	if err != nil {
		return nil, fmt.Errorf("query workflow logs: %w", err)
	}

	result := pagination.NewPageResult(logs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) LastSuccess(ctx context.Context, workflowID, documentID uuid.UUID) (*time.Time, error) {
	q := `
		SELECT MAX(executed_at)
		FROM workflow_execution_logs
		WHERE workflow_id = $1 AND document_id = $2 AND status = $3`

	var last sql.NullTime
	if err := r.db.QueryRowContext(ctx, q, workflowID, documentID, StatusSuccess).Scan(&last); err != nil {
		return nil, fmt.Errorf("query last workflow success: %w", err)
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}

func (r *repo) find(ctx context.Context, q repository.Querier, id uuid.UUID) (*Workflow, error) {
	sqlText, args := query.NewBuilder(projection).BuildSingle("ID", id)

	wf, err := repository.QueryOne(ctx, q, sqlText, args, scanWorkflow)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	flows := []Workflow{wf}
	if err := r.attach(ctx, q, flows); err != nil {
		return nil, err
	}
	return &flows[0], nil
}

func (r *repo) listWith(ctx context.Context, q string, args []any) ([]Workflow, error) {
	flows, err := repository.QueryMany(ctx, r.db, q, args, scanWorkflow)
	if err != nil {
		return nil, fmt.Errorf("query workflows: %w", err)
	}
	if err := r.attach(ctx, r.db, flows); err != nil {
		return nil, err
	}
	return flows, nil
}

// attach loads the triggers and actions of flows in two queries.
func (r *repo) attach(ctx context.Context, q repository.Querier, flows []Workflow) error {
	if len(flows) == 0 {
		return nil
	}

	ids := make([]any, len(flows))
	index := make(map[uuid.UUID]int, len(flows))
	for i, wf := range flows {
		ids[i] = wf.ID
		index[wf.ID] = i
	}

	tq, targs := query.
		NewBuilder(triggerProjection, query.SortField{Field: "ID"}).
		WhereIn("WorkflowID", ids).
		Build()

	triggers, err := repository.QueryMany(ctx, q, tq, targs, scanTrigger)
	if err != nil {
		return fmt.Errorf("query workflow triggers: %w", err)
	}
	for _, t := range triggers {
		i := index[t.WorkflowID]
		flows[i].Triggers = append(flows[i].Triggers, t)
	}

	aq, aargs := query.
		NewBuilder(actionProjection, query.SortField{Field: "Position"}).
		WhereIn("WorkflowID", ids).
		Build()

	actions, err := repository.QueryMany(ctx, q, aq, aargs, scanAction)
	if err != nil {
		return fmt.Errorf("query workflow actions: %w", err)
	}
	for _, a := range actions {
		i := index[a.WorkflowID]
		flows[i].Actions = append(flows[i].Actions, a)
	}

	return nil
}

func (r *repo) replaceChildren(
	ctx context.Context,
	tx *sql.Tx,
	wf *Workflow,
	triggers []TriggerInput,
	actions []ActionInput,
) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM workflow_triggers WHERE workflow_id = $1", wf.ID); err != nil {
		return fmt.Errorf("clear workflow triggers: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM workflow_actions WHERE workflow_id = $1", wf.ID); err != nil {
		return fmt.Errorf("clear workflow actions: %w", err)
	}

	tq := `
		INSERT INTO workflow_triggers (
			workflow_id, trigger_type, condition_type, condition_value,
			schedule_date_field, schedule_custom_field, schedule_offset_days,
			schedule_is_recurring, schedule_recurring_interval_days
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, workflow_id, trigger_type, condition_type, condition_value,
			schedule_date_field, schedule_custom_field, schedule_offset_days,
			schedule_is_recurring, schedule_recurring_interval_days`

	wf.Triggers = make([]Trigger, 0, len(triggers))
	for _, in := range triggers {
		in = in.normalize()
		t, err := repository.QueryOne(
			ctx, tx, tq,
			[]any{
				wf.ID, in.TriggerType, in.ConditionType, in.ConditionValue,
				string(in.ScheduleDateField), in.ScheduleCustomField, in.ScheduleOffsetDays,
				in.ScheduleIsRecurring, in.ScheduleRecurringIntervalDays,
			},
			scanTrigger,
		)
		if err != nil {
			return fmt.Errorf("insert workflow trigger: %w", err)
		}
		wf.Triggers = append(wf.Triggers, t)
	}

	aq := `
		INSERT INTO workflow_actions (workflow_id, position, action_type, action_value)
		VALUES ($1, $2, $3, $4)
		RETURNING id, workflow_id, position, action_type, action_value`

	wf.Actions = make([]Action, 0, len(actions))
	for i, in := range actions {
		a, err := repository.QueryOne(
			ctx, tx, aq,
			[]any{wf.ID, i, strings.TrimSpace(in.ActionType), strings.TrimSpace(in.ActionValue)},
			scanAction,
		)
		if err != nil {
			return fmt.Errorf("insert workflow action: %w", err)
		}
		wf.Actions = append(wf.Actions, a)
	}

	return nil
}

func (in TriggerInput) normalize() TriggerInput {
	in.TriggerType = strings.TrimSpace(in.TriggerType)
	in.ConditionType = strings.TrimSpace(in.ConditionType)
	if in.ConditionType == "" {
		in.ConditionType = ConditionAlways
	}
	in.ConditionValue = strings.TrimSpace(in.ConditionValue)
	if in.ScheduleDateField == "" {
		in.ScheduleDateField = documents.DateCreated
	}
	in.ScheduleRecurringIntervalDays = max(in.ScheduleRecurringIntervalDays, 0)
	return in
}

func inputsFromTriggers(triggers []Trigger) []TriggerInput {
	out := make([]TriggerInput, len(triggers))
	for i, t := range triggers {
		out[i] = TriggerInput{
			TriggerType:                   t.TriggerType,
			ConditionType:                 t.ConditionType,
			ConditionValue:                t.ConditionValue,
			ScheduleDateField:             t.ScheduleDateField,
			ScheduleCustomField:           t.ScheduleCustomField,
			ScheduleOffsetDays:            t.ScheduleOffsetDays,
			ScheduleIsRecurring:           t.ScheduleIsRecurring,
			ScheduleRecurringIntervalDays: t.ScheduleRecurringIntervalDays,
		}
	}
	return out
}

func inputsFromActions(actions []Action) []ActionInput {
	out := make([]ActionInput, len(actions))
	for i, a := range actions {
		out[i] = ActionInput{ActionType: a.ActionType, ActionValue: a.ActionValue}
	}
	return out
}

func validate(name string, triggers []TriggerInput, actions []ActionInput) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidWorkflow)
	}

	for i, t := range triggers {
		t = t.normalize()
		if !ValidEvent(t.TriggerType) {
			return fmt.Errorf("%w: trigger %d: unknown trigger type %q", ErrInvalidWorkflow, i, t.TriggerType)
		}
		if c, ok := t.condition().(UnknownCondition); ok {
			return fmt.Errorf("%w: trigger %d: %v", ErrInvalidWorkflow, i, c.Err)
		}
		if t.TriggerType == EventScheduled &&
			t.ScheduleDateField == documents.DateCustomField &&
			strings.TrimSpace(t.ScheduleCustomField) == "" {
			return fmt.Errorf("%w: trigger %d: custom field name is required", ErrInvalidWorkflow, i)
		}
	}

	for i, a := range actions {
		if op, ok := ParseOperation(a.ActionType, a.ActionValue).(UnknownAction); ok {
			return fmt.Errorf("%w: action %d: %v", ErrInvalidWorkflow, i, op.Err)
		}
	}

	return nil
}

func (in TriggerInput) condition() Condition {
	return ParseCondition(in.ConditionType, in.ConditionValue)
}
