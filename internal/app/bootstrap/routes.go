// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	auditapifeature "github.com/dalemusser/stratadrive/internal/app/features/auditapi"
	browsefeature "github.com/dalemusser/stratadrive/internal/app/features/browse"
	filesfeature "github.com/dalemusser/stratadrive/internal/app/features/files"
	foldersfeature "github.com/dalemusser/stratadrive/internal/app/features/folders"
	healthfeature "github.com/dalemusser/stratadrive/internal/app/features/health"
	sessionfeature "github.com/dalemusser/stratadrive/internal/app/features/session"
	settingsapifeature "github.com/dalemusser/stratadrive/internal/app/features/settingsapi"
	sharingfeature "github.com/dalemusser/stratadrive/internal/app/features/sharing"
	statusfeature "github.com/dalemusser/stratadrive/internal/app/features/status"
	auditstore "github.com/dalemusser/stratadrive/internal/app/store/audit"
	filestore "github.com/dalemusser/stratadrive/internal/app/store/file"
	folderstore "github.com/dalemusser/stratadrive/internal/app/store/folder"
	permissionstore "github.com/dalemusser/stratadrive/internal/app/store/permission"
	settingsstore "github.com/dalemusser/stratadrive/internal/app/store/settings"
	userstore "github.com/dalemusser/stratadrive/internal/app/store/users"
	"github.com/dalemusser/stratadrive/internal/app/system/auditlog"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/app/system/authz"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// The surface is a JSON API for the browser client plus health probes and
// the session-blob fallback endpoint. Authentication is session-cookie
// based; every /api route except login requires a signed-in viewer.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Stores, all wrapping the shared datastore client.
	files := filestore.New(deps.Datastore, appCfg.Namespace, logger)
	folders := folderstore.New(deps.Datastore, appCfg.Namespace, logger)
	permissions := permissionstore.New(deps.Datastore, appCfg.Namespace, logger)
	audits := auditstore.New(deps.Datastore, appCfg.Namespace, logger)
	settings := settingsstore.New(deps.Datastore, appCfg.Namespace, logger)
	usersStore := userstore.New(deps.Datastore, appCfg.Namespace, logger)

	auditLogger := auditlog.New(audits, logger, appCfg.AuditLog)
	resolver := authz.New(appCfg.FallbackIdentity)

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────

	// Request timeout middleware: prevents requests from hanging indefinitely.
	// Generous because large uploads stream through the transfer path.
	r.Use(chimw.Timeout(10 * time.Minute))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Session middleware: loads the viewer into context if signed in.
	r.Use(sessionMgr.LoadViewer)

	// CSRF protection middleware with path-based exemption.
	// Cookie name is "stratadrive_csrf" to avoid collisions with other
	// services on the same domain.
	csrfOpts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("stratadrive_csrf"),
		csrf.FieldName("csrf_token"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("CSRF validation failed",
				zap.String("path", req.URL.Path),
				zap.String("method", req.Method),
				zap.String("reason", csrf.FailureReason(req).Error()),
			)
			http.Error(w, "CSRF token invalid or missing", http.StatusForbidden)
		})),
	}
	// In dev mode, trust localhost origins for CSRF validation.
	if !secure {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins([]string{
			"localhost:8080",
			"localhost:3000",
			"127.0.0.1:8080",
			"127.0.0.1:3000",
		}))
	}
	if appCfg.SessionDomain != "" {
		csrfOpts = append(csrfOpts, csrf.Domain(appCfg.SessionDomain))
	}
	csrfProtect := csrf.Protect([]byte(appCfg.CSRFKey), csrfOpts...)

	// Skip CSRF for login (no session exists yet to bind a token to).
	csrfMiddleware := func(next http.Handler) http.Handler {
		csrfHandler := csrfProtect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.URL.Path == "/api/session/login" {
				next.ServeHTTP(w, req)
				return
			}
			csrfHandler.ServeHTTP(w, req)
		})
	}
	r.Use(csrfMiddleware)

	// ─────────────────────────────────────────────────────────────────────────
	// Routes
	// ─────────────────────────────────────────────────────────────────────────

	// Health check endpoints for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.Datastore, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// Session-scoped fallback blobs from degraded uploads
	r.Get("/session-blobs/*", deps.Transfer.Blobs().ServeHTTP)

	// Session (login is the one unauthenticated API route)
	sessionHandler := sessionfeature.NewHandler(deps.Identity, sessionMgr, usersStore, resolver, logger)
	r.Mount("/api/session", sessionfeature.Routes(sessionHandler))

	// Drive sections and filtering
	browseHandler := browsefeature.NewHandler(files, folders, permissions, resolver, logger)
	r.Route("/api/browse", func(sr chi.Router) {
		sr.Use(sessionMgr.RequireSignedIn)
		sr.Mount("/", browsefeature.Routes(browseHandler))
	})

	// File management
	filesHandler := filesfeature.NewHandler(files, folders, permissions, deps.Transfer, auditLogger, logger)
	r.Route("/api/files", func(sr chi.Router) {
		sr.Use(sessionMgr.RequireSignedIn)
		sr.Mount("/", filesfeature.Routes(filesHandler))
	})

	// Folder management
	foldersHandler := foldersfeature.NewHandler(folders, files, auditLogger, logger)
	r.Route("/api/folders", func(sr chi.Router) {
		sr.Use(sessionMgr.RequireSignedIn)
		sr.Mount("/", foldersfeature.Routes(foldersHandler))
	})

	// Sharing and grants
	sharingHandler := sharingfeature.NewHandler(files, permissions, usersStore, deps.Identity, auditLogger, logger)
	r.Route("/api/sharing", func(sr chi.Router) {
		sr.Use(sessionMgr.RequireSignedIn)
		sr.Mount("/", sharingfeature.Routes(sharingHandler))
	})

	// Audit trail queries
	auditHandler := auditapifeature.NewHandler(audits, logger)
	r.Route("/api/audit", func(sr chi.Router) {
		sr.Use(sessionMgr.RequireSignedIn)
		sr.Mount("/", auditapifeature.Routes(auditHandler))
	})

	// User preferences
	settingsHandler := settingsapifeature.NewHandler(settings, logger)
	r.Route("/api/settings", func(sr chi.Router) {
		sr.Use(sessionMgr.RequireSignedIn)
		sr.Mount("/", settingsapifeature.Routes(settingsHandler))
	})

	// System status
	statusHandler := statusfeature.NewHandler(deps.Datastore, appCfg.Namespace, logger)
	r.Mount("/api/status", statusfeature.Routes(statusHandler, sessionMgr))

	return r, nil
}
