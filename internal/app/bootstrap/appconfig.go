// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (ports, TLS, CORS,
// logging, body size limits). AppConfig is everything specific to this
// application: the platform datastore connection, the content transfer
// thresholds, session and CSRF keys, and audit logging.
type AppConfig struct {
	// Platform datastore connection
	DatastoreBaseURL  string // Platform API root, e.g. https://play.example.org/api
	DatastoreUsername string // Statically configured basic-auth username
	DatastorePassword string // Statically configured basic-auth password
	Namespace         string // Datastore namespace holding every record

	// Datastore request behavior
	RequestTimeout time.Duration // Per-request HTTP timeout
	SetRetries     int           // Write retry attempts
	SetRetryDelay  time.Duration // Base of the linear write backoff
	VerifyDelay    time.Duration // Wait before the post-write verification read

	// Content transfer
	InlineThreshold int64         // Files below this are base64-inlined (bytes)
	MaxUploadSize   int64         // Absolute upload cap (bytes)
	TransferTimeout time.Duration // Blob endpoint HTTP timeout

	// Access resolution
	// FallbackIdentity is matched against grants when the identity provider
	// is unreachable. Empty means fail closed.
	FallbackIdentity string

	// Session management
	SessionKey    string        // Secret key for signing session cookies
	SessionName   string        // Cookie name (default: stratadrive-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Session cookie lifetime

	// CSRF protection
	CSRFKey string // Secret key for CSRF token signing (32+ chars in production)

	// Audit logging
	// Values: "all" (datastore + zap), "db" (datastore only), "log" (zap
	// only), "off" (disabled)
	AuditLog string
}
