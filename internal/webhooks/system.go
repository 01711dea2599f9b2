package webhooks

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/pkg/pagination"
)

// System manages webhook registrations and event delivery.
type System interface {
	Handler() *Handler

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Webhook], error)
	Find(ctx context.Context, id uuid.UUID) (*Webhook, error)
	Create(ctx context.Context, cmd CreateCommand) (*Webhook, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Webhook, error)
	Delete(ctx context.Context, id uuid.UUID) error

	Logs(ctx context.Context, id uuid.UUID, page pagination.PageRequest) (*pagination.PageResult[Log], error)
	Stats(ctx context.Context, id uuid.UUID, days int) (*Stats, error)

	// Trigger delivers event to all subscribed webhooks. It never fails.
	Trigger(ctx context.Context, event string, data any)
	// Test sends a webhook.test event to one webhook.
	Test(ctx context.Context, id uuid.UUID) (*Delivery, error)
	// Wait blocks until background retries have finished.
	Wait()
	// Shutdown drains retries until ctx is done, then cancels the rest.
	Shutdown(ctx context.Context) error
}
