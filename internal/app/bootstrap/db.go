// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/stratadrive/internal/app/store/keyvalue"
	"github.com/dalemusser/stratadrive/internal/app/system/identity"
	"github.com/dalemusser/stratadrive/internal/app/system/transfer"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// ConnectDB builds the platform clients.
//
// WAFFLE calls this after configuration is loaded but before Startup. The
// datastore is a remote REST service, so "connecting" constructs the
// clients; reachability is probed in Startup where a failure can be
// reported against a live configuration.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	kv, err := keyvalue.New(keyvalue.Config{
		BaseURL:       appCfg.DatastoreBaseURL,
		Username:      appCfg.DatastoreUsername,
		Password:      appCfg.DatastorePassword,
		Timeout:       appCfg.RequestTimeout,
		SetRetries:    appCfg.SetRetries,
		SetRetryDelay: appCfg.SetRetryDelay,
		VerifyDelay:   appCfg.VerifyDelay,
	}, logger)
	if err != nil {
		return DBDeps{}, err
	}
	logger.Info("datastore client ready",
		zap.String("base_url", appCfg.DatastoreBaseURL),
		zap.String("namespace", appCfg.Namespace),
		zap.Int("set_retries", appCfg.SetRetries),
	)

	idc, err := identity.New(identity.Config{
		BaseURL:  appCfg.DatastoreBaseURL,
		Username: appCfg.DatastoreUsername,
		Password: appCfg.DatastorePassword,
		Timeout:  appCfg.RequestTimeout,
	}, logger)
	if err != nil {
		return DBDeps{}, err
	}

	tr := transfer.New(transfer.Config{
		BlobBaseURL:     appCfg.DatastoreBaseURL,
		Username:        appCfg.DatastoreUsername,
		Password:        appCfg.DatastorePassword,
		InlineThreshold: appCfg.InlineThreshold,
		MaxUploadSize:   appCfg.MaxUploadSize,
		Timeout:         appCfg.TransferTimeout,
	}, logger)
	logger.Info("content transfer ready",
		zap.Int64("inline_threshold", appCfg.InlineThreshold),
		zap.Int64("max_upload_size", appCfg.MaxUploadSize),
	)

	return DBDeps{
		Datastore: kv,
		Identity:  idc,
		Transfer:  tr,
	}, nil
}
