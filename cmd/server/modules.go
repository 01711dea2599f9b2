package main

import (
	"net/http"

	"github.com/JaimeStill/archivist/internal/api"
	"github.com/JaimeStill/archivist/internal/config"
	"github.com/JaimeStill/archivist/internal/infrastructure"
	"github.com/JaimeStill/archivist/internal/observability"
	"github.com/JaimeStill/archivist/pkg/handlers"
	"github.com/JaimeStill/archivist/pkg/module"
)

type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{
		API: apiModule,
	}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

// buildRouter serves the probes and the metrics endpoint outside the API
// module so they bypass its middleware.
func buildRouter(infra *infrastructure.Infrastructure, cfg *config.Config) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() || !infra.Database.Ready() {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	router.HandleNative("GET "+cfg.API.MetricsPath, observability.Handler().ServeHTTP)

	return router
}
