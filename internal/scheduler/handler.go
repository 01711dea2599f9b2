package scheduler

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/archivist/pkg/handlers"
	"github.com/JaimeStill/archivist/pkg/routes"
)

// Handler exposes the scheduled scan over HTTP for external cadence callers.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "schedules"),
	}
}

// Routes returns the route group definition for schedule endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/schedules",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/process", Handler: h.Process},
		},
	}
}

// Process runs one scheduled scan and returns its summary.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	summary := h.sys.ProcessDue(r.Context())
	handlers.RespondJSON(w, http.StatusOK, summary)
}
