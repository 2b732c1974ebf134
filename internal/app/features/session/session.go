// Package session provides the login/logout API endpoints.
//
// Endpoints:
//   - POST /api/session/login  - Verify credentials and start a session
//   - POST /api/session/logout - End the session
//   - GET  /api/session        - Current signed-in viewer
//
// The application stores no credentials of its own: login forwards the
// submitted pair to the platform identity endpoint and a successful check
// becomes a session cookie carrying the resolved viewer. When the identity
// endpoint is unreachable (as opposed to rejecting the credentials), login
// degrades to the configured fallback identity backed by the cached user
// store; with no fallback configured it fails closed.
package session

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratadrive/internal/app/store/users"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/app/system/authz"
	"github.com/dalemusser/stratadrive/internal/app/system/identity"
	"github.com/dalemusser/stratadrive/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler handles session API requests.
type Handler struct {
	identity *identity.Client
	sessions *auth.SessionManager
	users    *users.Store
	resolver *authz.Resolver
	logger   *zap.Logger
}

// NewHandler creates a new session handler.
func NewHandler(identityClient *identity.Client, sessions *auth.SessionManager, userStore *users.Store, resolver *authz.Resolver, logger *zap.Logger) *Handler {
	return &Handler{
		identity: identityClient,
		sessions: sessions,
		users:    userStore,
		resolver: resolver,
		logger:   logger,
	}
}

// Routes returns a router with the session endpoints.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/", h.Current)
	return r
}

// Login handles POST /api/session/login.
//
// Request body:
//
//	{ "username": "...", "password": "..." }
//
// Response (200 OK): the resolved viewer
//
//	{ "id": "...", "name": "..." }
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	if in.Username == "" || in.Password == "" {
		jsonutil.BadRequest(w, "username and password are required")
		return
	}

	viewer, user, err := h.identity.CheckCredentials(r.Context(), in.Username, in.Password)
	if err != nil {
		if identity.Unauthorized(err) {
			h.logger.Info("login rejected",
				zap.String("username", in.Username),
				zap.Error(err),
			)
			jsonutil.Unauthorized(w, "invalid credentials")
			return
		}
		h.loginDegraded(w, r, err)
		return
	}

	if err := h.sessions.SignIn(w, r, viewer); err != nil {
		h.logger.Error("failed to write session", zap.Error(err))
		jsonutil.InternalError(w, "failed to start session")
		return
	}

	// Cache the user record so the sharing UI can name people even when the
	// identity provider is later unreachable. Best effort.
	if err := h.users.Cache(r.Context(), *user); err != nil {
		h.logger.Warn("failed to cache user record",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}

	h.logger.Info("viewer signed in", zap.String("viewer_id", viewer.ID))
	jsonutil.OK(w, map[string]string{"id": viewer.ID, "name": viewer.Name})
}

// loginDegraded handles an unreachable identity endpoint. With a fallback
// identity configured the session is started as that viewer; grants then
// resolve by direct id comparison since the fallback carries no membership
// sets. Without one, fail closed.
func (h *Handler) loginDegraded(w http.ResponseWriter, r *http.Request, cause error) {
	viewer := h.fallbackViewer(r.Context())
	if viewer == nil {
		h.logger.Error("identity endpoint unavailable", zap.Error(cause))
		jsonutil.Error(w, http.StatusBadGateway, "identity service is unavailable")
		return
	}

	h.logger.Warn("identity endpoint unavailable; signing in fallback identity",
		zap.String("viewer_id", viewer.ID),
		zap.Error(cause),
	)
	if err := h.sessions.SignIn(w, r, viewer); err != nil {
		h.logger.Error("failed to write session", zap.Error(err))
		jsonutil.InternalError(w, "failed to start session")
		return
	}
	jsonutil.OK(w, map[string]string{"id": viewer.ID, "name": viewer.Name})
}

// fallbackViewer resolves the configured fallback identity, taking the
// display name from the cached user store when a record exists.
func (h *Handler) fallbackViewer(ctx context.Context) *models.Viewer {
	viewer := h.resolver.FallbackViewer()
	if viewer == nil {
		return nil
	}
	if u, err := h.users.GetCached(ctx, viewer.ID); err == nil {
		viewer.Name = u.Name
	}
	return viewer
}

// Logout handles POST /api/session/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOut(w, r); err != nil {
		h.logger.Error("failed to clear session", zap.Error(err))
		jsonutil.InternalError(w, "failed to end session")
		return
	}
	jsonutil.NoContent(w)
}

// Current handles GET /api/session. Returns the signed-in viewer or 401.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	viewer, ok := auth.CurrentViewer(r)
	if !ok {
		jsonutil.Unauthorized(w, "not signed in")
		return
	}
	jsonutil.OK(w, map[string]string{"id": viewer.ID, "name": viewer.Name})
}
