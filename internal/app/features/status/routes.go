// internal/app/features/status/routes.go
package status

import (
	"net/http"

	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a chi.Router with status routes mounted.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)
	r.Get("/", h.Serve)
	return r
}
