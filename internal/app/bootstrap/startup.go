// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	settingsstore "github.com/dalemusser/stratadrive/internal/app/store/settings"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after the platform clients are built, but before the
// HTTP handler is built and requests are served.
//
// It probes datastore reachability with a live configuration and writes the
// default settings record when none exists, so first-run clients see a
// populated record instead of synthesizing defaults per request.
//
// A probe failure is logged but does not abort startup: the datastore is a
// remote service that may come up after this one, and every request path
// already handles an unreachable datastore.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	namespaces, err := deps.Datastore.ListNamespaces(ctx)
	if err != nil {
		logger.Warn("datastore unreachable at startup; continuing",
			zap.String("base_url", appCfg.DatastoreBaseURL),
			zap.Error(err),
		)
		return nil
	}
	logger.Info("datastore reachable",
		zap.Int("namespaces", len(namespaces)),
	)

	settings := settingsstore.New(deps.Datastore, appCfg.Namespace, logger)
	if err := settings.EnsureDefaults(ctx); err != nil {
		logger.Warn("failed to write default settings", zap.Error(err))
	}

	return nil
}
