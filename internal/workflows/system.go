package workflows

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/pkg/pagination"
)

// System defines the public contract for workflow management and execution.
type System interface {
	Handler() *Handler

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Workflow], error)
	Find(ctx context.Context, id uuid.UUID) (*Workflow, error)
	Create(ctx context.Context, cmd CreateCommand) (*Workflow, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Workflow, error)
	Delete(ctx context.Context, id uuid.UUID) error

	Logs(ctx context.Context, page pagination.PageRequest, filters LogFilters) (*pagination.PageResult[ExecutionLog], error)

	// ListScheduled returns enabled workflows owning at least one scheduled trigger.
	ListScheduled(ctx context.Context) ([]Workflow, error)
	// LastSuccess returns when an action of the workflow last succeeded for the
	// document, or nil if it never has.
	LastSuccess(ctx context.Context, workflowID, documentID uuid.UUID) (*time.Time, error)

	Execute(ctx context.Context, ev Event) (*Report, error)
	Raise(ctx context.Context, event string, id uuid.UUID) (any, error)
}
