package documents

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/pkg/pagination"
	"github.com/JaimeStill/archivist/pkg/query"
	"github.com/JaimeStill/archivist/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a document repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

func (r *repo) Handler(events Events) *Handler {
	return NewHandler(r, events, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereClause(liveDocument).
		WhereSearch(page.Search, "Title", "Content", "OriginalFilename")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	q, args := findQuery(id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) AddTag(ctx context.Context, id, tagID uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := touch(ctx, tx, id); err != nil {
			return struct{}{}, err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO document_tags(document_id, tag_id)
			VALUES ($1, $2)
			ON CONFLICT (document_id, tag_id) DO NOTHING`,
			id, tagID,
		)
		return struct{}{}, err
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("tag assigned", "id", id, "tag_id", tagID)
	return nil
}

func (r *repo) SetCorrespondent(ctx context.Context, id, correspondentID uuid.UUID) error {
	return r.setColumn(ctx, id, "correspondent_id", correspondentID)
}

func (r *repo) SetDocumentType(ctx context.Context, id, documentTypeID uuid.UUID) error {
	return r.setColumn(ctx, id, "document_type_id", documentTypeID)
}

func (r *repo) SetStoragePath(ctx context.Context, id, storagePathID uuid.UUID) error {
	return r.setColumn(ctx, id, "storage_path_id", storagePathID)
}

func (r *repo) ApplyClassification(ctx context.Context, id uuid.UUID, a Assignment) error {
	q := `
		UPDATE documents SET
			correspondent_id = COALESCE($2, correspondent_id),
			document_type_id = COALESCE($3, document_type_id),
			document_date = COALESCE($4, document_date),
			amount = COALESCE($5, amount),
			currency = COALESCE($6, currency),
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	var date any
	if a.DocumentDate != nil {
		date = a.DocumentDate.Format(time.DateOnly)
	}

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx, q,
			id, a.CorrespondentID, a.DocumentTypeID, date, a.Amount, a.Currency,
		); err != nil {
			return struct{}{}, err
		}

		for _, tagID := range a.TagIDs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO document_tags(document_id, tag_id)
				VALUES ($1, $2)
				ON CONFLICT (document_id, tag_id) DO NOTHING`,
				id, tagID,
			); err != nil {
				return struct{}{}, fmt.Errorf("assign tag %s: %w", tagID, err)
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("classification applied", "id", id, "tags", len(a.TagIDs))
	return nil
}

func (r *repo) FindIDsByDate(
	ctx context.Context,
	field DateField,
	customField string,
	date time.Time,
) ([]uuid.UUID, error) {
	q, args := dateQuery(field, customField, date)

	ids, err := repository.QueryMany(ctx, r.db, q, args, func(s repository.Scanner) (uuid.UUID, error) {
		var id uuid.UUID
		err := s.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, fmt.Errorf("query documents by %s: %w", field, err)
	}
	return ids, nil
}

func (r *repo) setColumn(ctx context.Context, id uuid.UUID, column string, value uuid.UUID) error {
	q := fmt.Sprintf("UPDATE documents SET %s = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL", column)

	if err := repository.ExecExpectOne(ctx, r.db, q, id, value); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document field assigned", "id", id, "field", column, "value", value)
	return nil
}

// liveDocument excludes documents the ingestion side has soft-deleted.
const liveDocument = "d.deleted_at IS NULL"

func findQuery(id uuid.UUID) (string, []any) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)
	return q + " AND " + liveDocument, args
}

// dateQuery builds the candidate selection for a scheduled date field.
// Timestamps are converted to date's location before taking the day, so the
// session time zone does not shift candidates. Unknown fields fall back to
// the creation date.
func dateQuery(field DateField, customField string, date time.Time) (string, []any) {
	day := date.Format(time.DateOnly)
	zone := date.Location().String()

	switch field {
	case DateModified:
		return `SELECT d.id FROM public.documents d
			WHERE (d.updated_at AT TIME ZONE $2)::date = $1::date
			AND d.deleted_at IS NULL
			ORDER BY d.id`, []any{day, zone}
	case DateCustomField:
		return `
			SELECT d.id FROM public.documents d
			JOIN public.document_custom_fields dcf ON dcf.document_id = d.id
			JOIN public.custom_fields cf ON cf.id = dcf.field_id
			WHERE cf.name = $1 AND dcf.value_date = $2::date
			AND d.deleted_at IS NULL
			ORDER BY d.id`, []any{customField, day}
	default:
		return `SELECT d.id FROM public.documents d
			WHERE (d.created_at AT TIME ZONE $2)::date = $1::date
			AND d.deleted_at IS NULL
			ORDER BY d.id`, []any{day, zone}
	}
}

func touch(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	return repository.ExecExpectOne(ctx, tx, "UPDATE documents SET updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL", id)
}
