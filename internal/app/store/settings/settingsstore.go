// Package settings provides the store for the singleton settings blob.
package settings

import (
	"context"

	"github.com/dalemusser/stratadrive/internal/app/store/keyvalue"
	"github.com/dalemusser/stratadrive/internal/app/store/storeutil"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.uber.org/zap"
)

// Store reads and writes the settings singleton as a whole.
type Store struct {
	kv        *keyvalue.Client
	namespace string
	logger    *zap.Logger
}

// New creates a new settings store.
func New(kv *keyvalue.Client, namespace string, logger *zap.Logger) *Store {
	return &Store{kv: kv, namespace: namespace, logger: logger}
}

// Get returns the stored settings, or the defaults when none exist yet.
func (s *Store) Get(ctx context.Context) (models.Settings, error) {
	var cfg models.Settings
	found, err := s.kv.GetValue(ctx, s.namespace, storeutil.SettingsKey, &cfg)
	if err != nil {
		return models.Settings{}, err
	}
	if !found {
		return models.DefaultSettings(), nil
	}
	return cfg, nil
}

// Put replaces the stored settings.
func (s *Store) Put(ctx context.Context, cfg models.Settings) error {
	return s.kv.SetValue(ctx, s.namespace, storeutil.SettingsKey, cfg)
}

// EnsureDefaults writes the default settings if none exist. Called once at
// startup so first-run clients see a populated record.
func (s *Store) EnsureDefaults(ctx context.Context) error {
	var cfg models.Settings
	found, err := s.kv.GetValue(ctx, s.namespace, storeutil.SettingsKey, &cfg)
	if err != nil {
		return err
	}
	if found {
		return nil
	}
	s.logger.Info("writing default settings")
	return s.Put(ctx, models.DefaultSettings())
}
