// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"net/url"
	"time"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
// Change this constant when forking stratadrive for a new project.
const EnvVarPrefix = "STRATADRIVE"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: datastore_base_url, session_name, etc.
//   - Environment variables: STRATADRIVE_DATASTORE_BASE_URL, etc.
//   - Command-line flags: --datastore_base_url, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "datastore_base_url", Default: "http://localhost:8080/api", Desc: "Platform API root hosting the datastore"},
	{Name: "datastore_username", Default: "", Desc: "Basic-auth username for the platform API"},
	{Name: "datastore_password", Default: "", Desc: "Basic-auth password for the platform API"},
	{Name: "namespace", Default: "resource-repository", Desc: "Datastore namespace holding every record"},

	// Datastore request behavior
	{Name: "request_timeout", Default: "30s", Desc: "Per-request HTTP timeout for the datastore"},
	{Name: "set_retries", Default: 3, Desc: "Datastore write retry attempts"},
	{Name: "set_retry_delay", Default: "1s", Desc: "Base of the linear write backoff (delay x attempt)"},
	{Name: "verify_delay", Default: "500ms", Desc: "Wait before the post-write verification read"},

	// Content transfer
	{Name: "inline_threshold", Default: 50 * 1024 * 1024, Desc: "Files below this many bytes are stored inline"},
	{Name: "max_upload_size", Default: 500 * 1024 * 1024, Desc: "Absolute upload size cap in bytes"},
	{Name: "transfer_timeout", Default: "5m", Desc: "Blob endpoint HTTP timeout"},

	// Access resolution
	{Name: "fallback_identity", Default: "", Desc: "Identity matched against grants when the provider is down (empty fails closed)"},

	// Session management
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "stratadrive-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie max age (e.g., 24h, 720h, 30m)"},

	{Name: "csrf_key", Default: "dev-only-csrf-key-please-change-0123456789", Desc: "CSRF token signing key (32+ chars in production)"},

	// Audit logging
	{Name: "audit_log", Default: "all", Desc: "Audit trail logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, STRATADRIVE_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		DatastoreBaseURL:  appValues.String("datastore_base_url"),
		DatastoreUsername: appValues.String("datastore_username"),
		DatastorePassword: appValues.String("datastore_password"),
		Namespace:         appValues.String("namespace"),

		RequestTimeout: appValues.Duration("request_timeout", 30*time.Second),
		SetRetries:     appValues.Int("set_retries"),
		SetRetryDelay:  appValues.Duration("set_retry_delay", 1*time.Second),
		VerifyDelay:    appValues.Duration("verify_delay", 500*time.Millisecond),

		InlineThreshold: int64(appValues.Int("inline_threshold")),
		MaxUploadSize:   int64(appValues.Int("max_upload_size")),
		TransferTimeout: appValues.Duration("transfer_timeout", 5*time.Minute),

		FallbackIdentity: appValues.String("fallback_identity"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 24*time.Hour),

		CSRFKey: appValues.String("csrf_key"),

		AuditLog: appValues.String("audit_log"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	u, err := url.Parse(appCfg.DatastoreBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		logger.Error("invalid datastore base URL", zap.String("url", appCfg.DatastoreBaseURL))
		return fmt.Errorf("invalid datastore base URL: %q", appCfg.DatastoreBaseURL)
	}
	if appCfg.Namespace == "" {
		return fmt.Errorf("namespace must not be empty")
	}
	if appCfg.MaxUploadSize > 0 && appCfg.InlineThreshold > appCfg.MaxUploadSize {
		return fmt.Errorf("inline_threshold (%d) must not exceed max_upload_size (%d)",
			appCfg.InlineThreshold, appCfg.MaxUploadSize)
	}
	switch appCfg.AuditLog {
	case "all", "db", "log", "off":
	default:
		return fmt.Errorf("audit_log must be one of all, db, log, off; got %q", appCfg.AuditLog)
	}

	return nil
}
