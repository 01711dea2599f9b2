package api

import (
	"github.com/JaimeStill/archivist/internal/ai"
	"github.com/JaimeStill/archivist/internal/classifications"
	"github.com/JaimeStill/archivist/internal/config"
	"github.com/JaimeStill/archivist/internal/documents"
	"github.com/JaimeStill/archivist/internal/matching"
	"github.com/JaimeStill/archivist/internal/rules"
	"github.com/JaimeStill/archivist/internal/scheduler"
	"github.com/JaimeStill/archivist/internal/webhooks"
	"github.com/JaimeStill/archivist/internal/workflows"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Documents       documents.System
	Matching        matching.System
	Classifications classifications.System
	Webhooks        webhooks.System
	Workflows       workflows.System
	Scheduler       scheduler.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	docsSystem := documents.New(db, runtime.Logger, runtime.Pagination)

	matchingSystem := matching.New(matching.NewSource(db), runtime.Logger)

	webhooksSystem := webhooks.New(
		db,
		runtime.Logger,
		runtime.Pagination,
		webhooks.Config{
			DefaultTimeout:    cfg.Webhooks.DefaultTimeoutDuration(),
			DefaultRetryCount: cfg.Webhooks.RetryCount(),
			MaxBackoff:        cfg.Webhooks.MaxBackoffDuration(),
			MaxResponseBytes:  cfg.Webhooks.MaxResponseBytes(),
		},
	)

	classificationsSystem := classifications.New(
		classifications.Deps{
			Documents: docsSystem,
			Rules:     rules.New(matchingSystem, runtime.Logger),
			AI: ai.New(ai.Config{
				BaseURL:     cfg.AI.BaseURL,
				APIKey:      cfg.AI.APIKey,
				Model:       cfg.AI.Model,
				Timeout:     cfg.AI.TimeoutDuration(),
				Temperature: cfg.AI.Temperature,
			}, runtime.Logger),
			Catalog:  matchingSystem,
			Notifier: webhooksSystem,
		},
		classifications.Config{
			Method:              classifications.ParseMethod(cfg.Classification.Method),
			AutoApply:           cfg.Classification.AutoApply,
			Threshold:           cfg.Classification.ThresholdValue(),
			DefaultAIConfidence: cfg.Classification.DefaultAIConfidence,
		},
		runtime.Logger,
	)

	workflowsSystem := workflows.New(
		db,
		docsSystem,
		runtime.Locker,
		webhooksSystem,
		runtime.Logger,
		runtime.Pagination,
	)

	schedulerSystem := scheduler.New(
		workflowsSystem,
		docsSystem,
		scheduler.Config{
			Location:          cfg.Scheduler.Location(),
			EnforceRecurrence: cfg.Scheduler.EnforceRecurrence,
		},
		runtime.Logger,
	)

	return &Domain{
		Documents:       docsSystem,
		Matching:        matchingSystem,
		Classifications: classificationsSystem,
		Webhooks:        webhooksSystem,
		Workflows:       workflowsSystem,
		Scheduler:       schedulerSystem,
	}
}
