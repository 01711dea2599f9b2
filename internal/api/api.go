// Package api assembles the API module with all domain systems, route
// registration, and the background workers those systems own.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JaimeStill/archivist/internal/config"
	"github.com/JaimeStill/archivist/internal/infrastructure"
	"github.com/JaimeStill/archivist/internal/observability"
	"github.com/JaimeStill/archivist/internal/scheduler"
	"github.com/JaimeStill/archivist/pkg/middleware"
	"github.com/JaimeStill/archivist/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(cfg, runtime)

	if err := startWorkers(cfg, runtime, domain); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.Observe(observability.ObserveRequest))

	return m, nil
}

// startWorkers ties webhook retries and the scheduled scan to the lifecycle.
// On shutdown the scan stops first so its events are dispatched before the
// webhook retries are drained.
func startWorkers(cfg *config.Config, runtime *Runtime, domain *Domain) error {
	lc := runtime.Lifecycle
	shutdownTimeout := cfg.ShutdownTimeoutDuration()

	var runner *scheduler.Runner
	if cfg.Scheduler.Enabled {
		r, err := scheduler.NewRunner(
			domain.Scheduler,
			cfg.Scheduler.Cron,
			cfg.Scheduler.RunTimeoutDuration(),
			runtime.Logger,
		)
		if err != nil {
			return fmt.Errorf("scheduler init failed: %w", err)
		}
		runner = r

		lc.OnStartup(func() {
			runner.Start()
		})
	}

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if runner != nil {
			if err := runner.Stop(ctx); err != nil {
				runtime.Logger.Warn("scheduled scan still running at shutdown", "error", err)
			}
		}

		if err := domain.Webhooks.Shutdown(ctx); err != nil {
			runtime.Logger.Warn("webhook retries abandoned", "error", err)
		}
	})

	return nil
}
