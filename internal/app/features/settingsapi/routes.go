package settingsapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the settings endpoints.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Put("/", h.Put)
	return r
}
