package api

import (
	"github.com/JaimeStill/archivist/internal/config"
	"github.com/JaimeStill/archivist/internal/infrastructure"
	"github.com/JaimeStill/archivist/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Locker:    infra.Locker,
			Redis:     infra.Redis,
		},
		Pagination: cfg.API.Pagination,
	}
}
