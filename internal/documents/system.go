package documents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/pkg/pagination"
)

// System defines the public contract for document store operations.
type System interface {
	Handler(events Events) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, id uuid.UUID) (*Document, error)

	// AddTag assigns tagID to the document if it is not already assigned.
	AddTag(ctx context.Context, id, tagID uuid.UUID) error
	SetCorrespondent(ctx context.Context, id, correspondentID uuid.UUID) error
	SetDocumentType(ctx context.Context, id, documentTypeID uuid.UUID) error
	SetStoragePath(ctx context.Context, id, storagePathID uuid.UUID) error

	// ApplyClassification writes every set field of a in one transaction.
	ApplyClassification(ctx context.Context, id uuid.UUID, a Assignment) error

	// FindIDsByDate returns documents whose date field falls on the calendar day of date.
	// customField names the custom field when field is DateCustomField.
	FindIDsByDate(ctx context.Context, field DateField, customField string, date time.Time) ([]uuid.UUID, error)
}

// Events raises document lifecycle events for automation.
type Events interface {
	Raise(ctx context.Context, event string, id uuid.UUID) (any, error)
}
