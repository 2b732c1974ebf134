// Package users provides the fallback cache of platform users.
//
// The platform identity endpoint is the authoritative source; this store
// only keeps copies under user_<id> keys so the sharing UI can still name
// people when the provider is unreachable.
package users

import (
	"context"
	"errors"

	"github.com/dalemusser/stratadrive/internal/app/store/keyvalue"
	"github.com/dalemusser/stratadrive/internal/app/store/storeutil"
	"github.com/dalemusser/stratadrive/internal/app/system/schema"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no cached copy exists.
var ErrNotFound = errors.New("user not cached")

// Store provides access to cached user records.
type Store struct {
	kv        *keyvalue.Client
	namespace string
	logger    *zap.Logger
}

// New creates a new user store.
func New(kv *keyvalue.Client, namespace string, logger *zap.Logger) *Store {
	return &Store{kv: kv, namespace: namespace, logger: logger}
}

// Cache stores a copy of a platform user.
func (s *Store) Cache(ctx context.Context, u models.User) error {
	return s.kv.SetValue(ctx, s.namespace, storeutil.Key(storeutil.UserPrefix, u.ID), &u)
}

// GetCached returns the cached copy of one user.
func (s *Store) GetCached(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	found, err := s.kv.GetValue(ctx, s.namespace, storeutil.Key(storeutil.UserPrefix, id), &u)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	if err := schema.Check(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListCached returns every cached user. Malformed records are skipped.
func (s *Store) ListCached(ctx context.Context) ([]models.User, error) {
	keys, err := s.kv.ListKeys(ctx, s.namespace)
	if err != nil {
		return nil, err
	}

	var list []models.User
	for _, key := range storeutil.MatchPrefix(keys, storeutil.UserPrefix) {
		var u models.User
		found, err := s.kv.GetValue(ctx, s.namespace, key, &u)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		if err := schema.Check(&u); err != nil {
			s.logger.Warn("skipping malformed user record", zap.String("key", key), zap.Error(err))
			continue
		}
		list = append(list, u)
	}
	return list, nil
}
