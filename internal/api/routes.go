package api

import (
	"net/http"

	"github.com/JaimeStill/archivist/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain) {
	routes.Register(
		mux,
		domain.Documents.Handler(domain.Workflows).Routes(),
		domain.Classifications.Handler().Routes(),
		domain.Workflows.Handler().Routes(),
		domain.Webhooks.Handler().Routes(),
		domain.Scheduler.Handler().Routes(),
	)
}
