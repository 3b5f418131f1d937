package httptransport

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"georef/internal/platform/middleware"
)

// NewRouter wires all endpoints. Public resolution routes are open; the
// admin subtree requires a bearer token with the admin scope.
func NewRouter(h *Handler, validator middleware.TokenValidator, logger *log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	h.Register(r)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireScope(validator, "admin", logger))
		h.RegisterAdmin(admin)
	})
	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
