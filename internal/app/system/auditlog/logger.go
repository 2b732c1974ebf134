// Package auditlog records the audit trail of user-visible file operations.
package auditlog

import (
	"context"

	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"go.uber.org/zap"
)

// Logger writes audit entries to the datastore (via audit.Store) and to
// structured logs (via zap), gated by the configured mode.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	// mode: "all" (datastore + zap), "db" (datastore only), "log" (zap only),
	// "off" (disabled)
	mode string
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, mode string) *Logger {
	return &Logger{store: store, zapLog: zapLog, mode: mode}
}

// Record logs one audit event based on configuration. A nil logger is a
// no-op so tests can pass nil. Store failures are logged and swallowed: an
// audit write must never fail the user operation it describes.
func (l *Logger) Record(ctx context.Context, event audit.AppendInput) {
	if l == nil || l.mode == "off" {
		return
	}

	if l.mode == "all" || l.mode == "log" {
		l.zapLog.Info("audit event",
			zap.Bool("audit", true),
			zap.String("action", event.Action),
			zap.String("file_id", event.FileID),
			zap.String("file_name", event.FileName),
			zap.String("user_id", event.UserID),
			zap.String("details", event.Details),
		)
	}

	if l.mode == "all" || l.mode == "db" {
		if _, err := l.store.Append(ctx, event); err != nil {
			l.zapLog.Error("failed to persist audit event",
				zap.String("action", event.Action),
				zap.String("file_id", event.FileID),
				zap.Error(err),
			)
		}
	}
}
