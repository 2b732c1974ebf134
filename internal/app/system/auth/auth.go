// Package auth provides cookie-session management for the browser UI.
//
// The application keeps no credentials of its own: login verifies the
// submitted pair against the platform identity endpoint and the session
// cookie carries the resolved viewer (id, name, membership id sets). The
// membership sets refresh on every login.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	isAuthKey    = "is_authenticated"
	viewerIDKey  = "viewer_id"
	viewerName   = "viewer_name"
	viewerGroups = "viewer_groups"
	viewerRoles  = "viewer_roles"
	viewerOrgs   = "viewer_org_units"
)

// SessionManager encapsulates the cookie store and configuration. Use
// NewSessionManager to create an instance and pass it by reference; there is
// no package-level singleton.
type SessionManager struct {
	store  *sessions.CookieStore
	logger *zap.Logger
	name   string
}

// SessionConfigError is returned when session configuration is invalid.
type SessionConfigError struct {
	Message string
}

func (e *SessionConfigError) Error() string {
	return e.Message
}

// NewSessionManager creates a new SessionManager.
//
//   - sessionKey: signing key for cookies (must be ≥32 chars in production)
//   - name: session cookie name (defaults to "stratadrive-session" if empty)
//   - domain: cookie domain (empty means current host)
//   - maxAge: session cookie lifetime
//   - secure: if true, cookies are Secure (for HTTPS production)
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, &SessionConfigError{Message: "session key is empty; provide ≥32 random chars"}
	}

	isWeak := len(sessionKey) < 32 || isDefaultKey(sessionKey)
	if secure && isWeak {
		return nil, &SessionConfigError{
			Message: "session key is too weak for production; provide ≥32 random chars (not the default dev key)",
		}
	}
	if isWeak {
		logger.Warn("session key is weak; 32+ random chars required in production",
			zap.Int("length", len(sessionKey)),
			zap.Bool("is_default", isDefaultKey(sessionKey)))
	}

	if name == "" {
		name = "stratadrive-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	logger.Info("session manager initialized",
		zap.Bool("secure", secure),
		zap.String("name", name),
		zap.String("domain", domain))

	return &SessionManager{store: store, logger: logger, name: name}, nil
}

// isDefaultKey reports whether the key is one of the shipped dev defaults.
func isDefaultKey(key string) bool {
	return strings.HasPrefix(key, "dev-only-")
}

// SessionName returns the configured session cookie name.
func (sm *SessionManager) SessionName() string {
	return sm.name
}

// SignIn stores the resolved viewer in a fresh session.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, viewer *models.Viewer) error {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		// corrupt or tampered cookie; start over
		sess, _ = sm.store.New(r, sm.name)
	}
	sess.Values[isAuthKey] = true
	sess.Values[viewerIDKey] = viewer.ID
	sess.Values[viewerName] = viewer.Name
	sess.Values[viewerGroups] = joinSet(viewer.Groups)
	sess.Values[viewerRoles] = joinSet(viewer.Roles)
	sess.Values[viewerOrgs] = joinSet(viewer.OrgUnits)
	return sess.Save(r, w)
}

// SignOut clears the session. A garbled cookie still signs out cleanly: the
// store hands back a fresh session alongside the decode error.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

type ctxKey string

const currentViewerKey ctxKey = "currentViewer"

// CurrentViewer returns the viewer & "found?" flag from the request context.
func CurrentViewer(r *http.Request) (*models.Viewer, bool) {
	v, ok := r.Context().Value(currentViewerKey).(*models.Viewer)
	return v, ok
}

// LoadViewer returns middleware that injects the session's viewer into the
// request context when a signed-in session is present. Requests without a
// valid session simply carry no viewer, which the API routes turn into 401.
func (sm *SessionManager) LoadViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			if isTampered(err) {
				sm.logger.Warn("session MAC validation failed (possible tampering)",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr))
			} else {
				sm.logger.Debug("session decode failed, starting fresh session",
					zap.String("path", r.URL.Path))
			}
			next.ServeHTTP(w, r)
			return
		}

		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			id := getString(sess, viewerIDKey)
			if id != "" {
				viewer := &models.Viewer{
					ID:       id,
					Name:     getString(sess, viewerName),
					Groups:   splitSet(getString(sess, viewerGroups)),
					Roles:    splitSet(getString(sess, viewerRoles)),
					OrgUnits: splitSet(getString(sess, viewerOrgs)),
				}
				r = withViewer(r, viewer)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn returns middleware that ensures there is a viewer in
// context. The SPA handles redirects itself; API callers get a plain 401.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentViewer(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

func withViewer(r *http.Request, v *models.Viewer) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentViewerKey, v))
}

// WithTestViewer injects a viewer into the request context for testing.
func WithTestViewer(r *http.Request, v *models.Viewer) *http.Request {
	return withViewer(r, v)
}

// isTampered reports whether the session error is a failed MAC check rather
// than an expired or garbled cookie.
func isTampered(err error) bool {
	scErr, ok := err.(securecookie.Error)
	if !ok {
		return false
	}
	return !scErr.IsDecode() && !scErr.IsUsage()
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

func joinSet(set map[string]struct{}) string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return strings.Join(ids, ",")
}

func splitSet(joined string) map[string]struct{} {
	set := make(map[string]struct{})
	if joined == "" {
		return set
	}
	for _, id := range strings.Split(joined, ",") {
		set[id] = struct{}{}
	}
	return set
}
