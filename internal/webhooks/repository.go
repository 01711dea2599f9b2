package webhooks

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/pkg/pagination"
	"github.com/JaimeStill/archivist/pkg/query"
	"github.com/JaimeStill/archivist/pkg/repository"
)

type repo struct {
	*Dispatcher

	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
	cfg        Config
}

// New creates a webhook repository implementing the System interface.
// Deliveries are performed by a Dispatcher backed by the same repository.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
	cfg Config,
	opts ...Option,
) System {
	r := &repo{
		db:         db,
		logger:     logger.With("system", "webhooks"),
		pagination: pagination,
		cfg:        cfg.normalize(),
	}
	r.Dispatcher = NewDispatcher(r, cfg, logger, opts...)
	return r
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Webhook], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "URL")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count webhooks: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	hooks, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanWebhook)
	if err != nil {
		return nil, fmt.Errorf("query webhooks: %w", err)
	}

	result := pagination.NewPageResult(hooks, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Webhook, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	w, err := repository.QueryOne(ctx, r.db, q, args, scanWebhook)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &w, nil
}

func (r *repo) ListActiveForEvent(ctx context.Context, event string) ([]Webhook, error) {
	q, args := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("IsActive", true).
		WhereClause(subscribedClause, event).
		Build()

	hooks, err := repository.QueryMany(ctx, r.db, q, args, scanWebhook)
	if err != nil {
		return nil, fmt.Errorf("query active webhooks: %w", err)
	}
	return hooks, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Webhook, error) {
	if err := validate(cmd.Name, cmd.URL, cmd.Events); err != nil {
		return nil, err
	}

	secret := cmd.Secret
	if secret == "" {
		s, err := generateSecret()
		if err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
		secret = s
	}

	active := true
	if cmd.IsActive != nil {
		active = *cmd.IsActive
	}

	timeout := cmd.TimeoutSeconds
	if timeout <= 0 {
		timeout = int(r.cfg.DefaultTimeout / time.Second)
	}

	retries := r.cfg.DefaultRetryCount
	if cmd.RetryCount != nil {
		retries = max(*cmd.RetryCount, 0)
	}

	events, err := json.Marshal(cmd.Events)
	if err != nil {
		return nil, fmt.Errorf("marshal events: %w", err)
	}

	q := `
		INSERT INTO webhooks (name, url, secret, is_active, events, timeout_seconds, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, name, url, secret, is_active, events, timeout_seconds, retry_count,
			last_triggered_at, created_at, updated_at`

	w, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Webhook, error) {
		return repository.QueryOne(
			ctx, tx, q,
			[]any{cmd.Name, cmd.URL, secret, active, string(events), timeout, retries},
			scanWebhook,
		)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("webhook created", "id", w.ID, "name", w.Name, "events", w.Events)
	return &w, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Webhook, error) {
	current, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if cmd.Name != nil {
		next.Name = *cmd.Name
	}
	if cmd.URL != nil {
		next.URL = *cmd.URL
	}
	if cmd.Secret != nil {
		next.Secret = *cmd.Secret
	}
	if cmd.Events != nil {
		next.Events = cmd.Events
	}
	if cmd.IsActive != nil {
		next.IsActive = *cmd.IsActive
	}
	if cmd.TimeoutSeconds != nil && *cmd.TimeoutSeconds > 0 {
		next.TimeoutSeconds = *cmd.TimeoutSeconds
	}
	if cmd.RetryCount != nil {
		next.RetryCount = max(*cmd.RetryCount, 0)
	}

	if err := validate(next.Name, next.URL, next.Events); err != nil {
		return nil, err
	}

	events, err := json.Marshal(next.Events)
	if err != nil {
		return nil, fmt.Errorf("marshal events: %w", err)
	}

	q := `
		UPDATE webhooks SET
			name = $1, url = $2, secret = $3, is_active = $4, events = $5,
			timeout_seconds = $6, retry_count = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING id, name, url, secret, is_active, events, timeout_seconds, retry_count,
			last_triggered_at, created_at, updated_at`

	w, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Webhook, error) {
		return repository.QueryOne(
			ctx, tx, q,
			[]any{next.Name, next.URL, next.Secret, next.IsActive, string(events), next.TimeoutSeconds, next.RetryCount, id},
			scanWebhook,
		)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("webhook updated", "id", w.ID, "name", w.Name)
	return &w, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, "DELETE FROM webhooks WHERE id = $1", id)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("webhook deleted", "id", id)
	return nil
}

func (r *repo) InsertLog(ctx context.Context, l *Log) error {
	q := `
		INSERT INTO webhook_logs (
			webhook_id, event, payload, response_code, response_body,
			error_message, attempt, execution_time_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, executed_at`

	payload := string(l.Payload)
	if payload == "" {
		payload = "{}"
	}

	err := r.db.QueryRowContext(
		ctx, q,
		l.WebhookID, l.Event, payload, l.ResponseCode, l.ResponseBody,
		l.ErrorMessage, l.Attempt, l.ExecutionTimeMs,
	).Scan(&l.ID, &l.ExecutedAt)
	if err != nil {
		return fmt.Errorf("insert webhook log: %w", err)
	}
	return nil
}

func (r *repo) TouchLastTriggered(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := repository.ExecExpectOne(ctx, r.db,
		"UPDATE webhooks SET last_triggered_at = $1 WHERE id = $2", at, id,
	)
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

func (r *repo) Logs(
	ctx context.Context,
	id uuid.UUID,
	page pagination.PageRequest,
) (*pagination.PageResult[Log], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(logProjection, logSort).
		WhereEquals("WebhookID", id).
		WhereSearch(page.Search, "Event")

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count webhook logs: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	logs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanLog)
	if err != nil {
		return nil, fmt.Errorf("query webhook logs: %w", err)
	}

	result := pagination.NewPageResult(logs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Stats(ctx context.Context, id uuid.UUID, days int) (*Stats, error) {
	if days <= 0 {
		days = 7
	}

	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}

	q := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE error_message IS NULL AND response_code BETWEEN 200 AND 299),
			COALESCE(AVG(execution_time_ms), 0),
			COALESCE(MAX(execution_time_ms), 0)
		FROM webhook_logs
		WHERE webhook_id = $1 AND executed_at >= NOW() - make_interval(days => $2)`

	s := Stats{WebhookID: id, Days: days}
	if err := r.db.QueryRowContext(ctx, q, id, days).Scan(
		&s.Total, &s.Success, &s.AvgTimeMs, &s.MaxTimeMs,
	); err != nil {
		return nil, fmt.Errorf("query webhook stats: %w", err)
	}

	s.finalize()
	return &s, nil
}

func (s *Stats) finalize() {
	s.Errors = s.Total - s.Success
	if s.Total > 0 {
		s.SuccessRatePct = float64(s.Success) / float64(s.Total) * 100
	}
}

func validate(name, rawURL string, events []string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidWebhook)
	}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be an absolute http(s) URL", ErrInvalidWebhook)
	}

	if len(events) == 0 {
		return fmt.Errorf("%w: at least one event is required", ErrInvalidWebhook)
	}
	for _, e := range events {
		if strings.TrimSpace(e) == "" {
			return fmt.Errorf("%w: event names must not be empty", ErrInvalidWebhook)
		}
	}

	return nil
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
