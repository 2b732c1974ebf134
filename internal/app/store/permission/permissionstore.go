// Package permission provides the store for access grants.
//
// All grants live in one singleton list under the "permissions" key, so
// grant and revoke are read-modify-write cycles on that key. Concurrent
// sharers racing on the same key resolve last-write-wins like every other
// datastore write.
package permission

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/store/keyvalue"
	"github.com/dalemusser/stratadrive/internal/app/store/storeutil"
	"github.com/dalemusser/stratadrive/internal/app/system/schema"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned when revoking a grant that does not exist.
var ErrNotFound = errors.New("grant not found")

// Store provides access to the permissions singleton.
type Store struct {
	kv        *keyvalue.Client
	namespace string
	logger    *zap.Logger
}

// New creates a new permission store.
func New(kv *keyvalue.Client, namespace string, logger *zap.Logger) *Store {
	return &Store{kv: kv, namespace: namespace, logger: logger}
}

// ListAll returns every grant. An absent permissions key is an empty list.
// Malformed grants are skipped with a warning.
func (s *Store) ListAll(ctx context.Context) ([]models.Permission, error) {
	var grants []models.Permission
	found, err := s.kv.GetValue(ctx, s.namespace, storeutil.PermissionsKey, &grants)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	valid := grants[:0]
	for i := range grants {
		if err := schema.Check(&grants[i]); err != nil {
			s.logger.Warn("skipping malformed grant", zap.Error(err))
			continue
		}
		valid = append(valid, grants[i])
	}
	return valid, nil
}

// ListByFile returns the grants referencing one file.
func (s *Store) ListByFile(ctx context.Context, fileID string) ([]models.Permission, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var grants []models.Permission
	for _, g := range all {
		if g.FileID == fileID {
			grants = append(grants, g)
		}
	}
	return grants, nil
}

// GrantInput contains the input for creating a grant. Either UserID or the
// TargetType/TargetID pair identifies the target.
type GrantInput struct {
	FileID     string
	UserID     string
	TargetType string
	TargetID   string
	Access     string
	GrantedBy  string
	ExpiresAt  *time.Time
}

// Grant appends a new grant to the singleton list.
func (s *Store) Grant(ctx context.Context, input GrantInput) (*models.Permission, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	g := models.Permission{
		ID:         uuid.NewString(),
		FileID:     input.FileID,
		UserID:     input.UserID,
		TargetType: input.TargetType,
		TargetID:   input.TargetID,
		Access:     input.Access,
		GrantedBy:  input.GrantedBy,
		GrantedAt:  time.Now().UTC(),
		ExpiresAt:  input.ExpiresAt,
	}
	all = append(all, g)

	if err := s.kv.SetValue(ctx, s.namespace, storeutil.PermissionsKey, all); err != nil {
		return nil, err
	}
	return &g, nil
}

// Revoke removes one grant by id. Expired grants are left in place by the
// resolver; Revoke is the only way a grant leaves the list.
func (s *Store) Revoke(ctx context.Context, grantID string) error {
	all, err := s.ListAll(ctx)
	if err != nil {
		return err
	}

	kept := all[:0]
	removed := false
	for _, g := range all {
		if g.ID == grantID {
			removed = true
			continue
		}
		kept = append(kept, g)
	}
	if !removed {
		return ErrNotFound
	}

	return s.kv.SetValue(ctx, s.namespace, storeutil.PermissionsKey, kept)
}
