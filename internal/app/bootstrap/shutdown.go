// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown is invoked during WAFFLE's shutdown phase, after the HTTP server
// has stopped accepting new requests and in-flight requests have drained.
//
// The platform clients are plain HTTP clients with no persistent
// connections to tear down; session-scoped fallback blobs die with the
// process by contract. Nothing to do beyond logging.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	logger.Info("shutdown complete")
	return nil
}
