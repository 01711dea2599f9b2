package classifications

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/internal/ai"
	"github.com/JaimeStill/archivist/internal/documents"
	"github.com/JaimeStill/archivist/internal/matching"
)

// System defines the public contract for classification operations.
type System interface {
	Handler() *Handler

	// Classify runs the configured strategy for a document. AI failures
	// degrade to the rules result and are reported on the envelope.
	Classify(ctx context.Context, documentID uuid.UUID) (*Envelope, error)

	// Apply writes a reviewed result to the document.
	Apply(ctx context.Context, documentID uuid.UUID, result *Result) error

	Settings() Settings
}

// RulesEngine produces pattern-based classifications.
type RulesEngine interface {
	Classify(ctx context.Context, doc *documents.Document) (*Result, error)
}

// CatalogSource lists existing entities for AI name resolution.
type CatalogSource interface {
	Catalog(ctx context.Context) *matching.Catalog
}

// Notifier receives classification events.
type Notifier interface {
	Trigger(ctx context.Context, event string, data any)
}

// Deps are the collaborators of the classification System.
// AI and Notifier are optional.
type Deps struct {
	Documents documents.System
	Rules     RulesEngine
	AI        ai.Classifier
	Catalog   CatalogSource
	Notifier  Notifier
}

// Config controls strategy selection and auto-application.
type Config struct {
	Method              Method
	AutoApply           bool
	Threshold           float64
	DefaultAIConfidence float64
}

func (c Config) normalize() Config {
	c.Method = ParseMethod(string(c.Method))
	if c.Threshold < 0 || c.Threshold > 1 {
		c.Threshold = 0.8
	}
	if c.DefaultAIConfidence <= 0 || c.DefaultAIConfidence > 1 {
		c.DefaultAIConfidence = 0.7
	}
	return c
}
