// Package folder provides the datastore-backed store for folder records.
package folder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/store/keyvalue"
	"github.com/dalemusser/stratadrive/internal/app/store/storeutil"
	"github.com/dalemusser/stratadrive/internal/app/system/schema"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a folder record does not exist.
	ErrNotFound = errors.New("folder not found")
	// ErrParentNotFound is returned when creating under a missing parent.
	ErrParentNotFound = errors.New("parent folder not found")
)

// Store provides access to folder records in the datastore namespace.
type Store struct {
	kv        *keyvalue.Client
	namespace string
	logger    *zap.Logger
}

// New creates a new folder store.
func New(kv *keyvalue.Client, namespace string, logger *zap.Logger) *Store {
	return &Store{kv: kv, namespace: namespace, logger: logger}
}

// CreateInput contains the input for creating a folder.
type CreateInput struct {
	Name        string
	Description string
	ParentID    string
	OwnerID     string
	Tags        []string
}

// Create writes a new folder record. New folders only ever attach under an
// already-existing parent, which is what keeps the parent links a tree.
func (s *Store) Create(ctx context.Context, input CreateInput) (*models.Folder, error) {
	path := "/" + input.Name
	if input.ParentID != "" {
		parent, err := s.GetByID(ctx, input.ParentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
		path = parent.Path + "/" + input.Name
	}

	now := time.Now().UTC()
	f := models.Folder{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		ParentID:    input.ParentID,
		Path:        path,
		CreatedAt:   now,
		ModifiedAt:  now,
		OwnerID:     input.OwnerID,
		Tags:        input.Tags,
	}

	if err := s.kv.SetValue(ctx, s.namespace, storeutil.Key(storeutil.FolderPrefix, f.ID), &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// GetByID retrieves a folder by id.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	var f models.Folder
	found, err := s.kv.GetValue(ctx, s.namespace, storeutil.Key(storeutil.FolderPrefix, id), &f)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	if err := schema.Check(&f); err != nil {
		return nil, fmt.Errorf("folder %s: %w", id, err)
	}
	return &f, nil
}

// UpdateInput contains the fields a caller may change. Nil fields are left
// untouched.
type UpdateInput struct {
	Name        *string
	Description *string
	Tags        *[]string
	Starred     *bool
	Shared      *bool
}

// Update merges the caller's changed fields into the stored record.
func (s *Store) Update(ctx context.Context, id string, input UpdateInput) (*models.Folder, error) {
	f, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		f.Name = *input.Name
	}
	if input.Description != nil {
		f.Description = *input.Description
	}
	if input.Tags != nil {
		f.Tags = *input.Tags
	}
	if input.Starred != nil {
		f.Starred = *input.Starred
	}
	if input.Shared != nil {
		f.Shared = *input.Shared
	}
	f.ModifiedAt = time.Now().UTC()

	if err := s.kv.SetValue(ctx, s.namespace, storeutil.Key(storeutil.FolderPrefix, id), f); err != nil {
		return nil, err
	}
	return f, nil
}

// List returns every folder record in the namespace. Malformed records are
// skipped with a warning.
func (s *Store) List(ctx context.Context) ([]models.Folder, error) {
	keys, err := s.kv.ListKeys(ctx, s.namespace)
	if err != nil {
		return nil, err
	}

	var folders []models.Folder
	for _, key := range storeutil.MatchPrefix(keys, storeutil.FolderPrefix) {
		var f models.Folder
		found, err := s.kv.GetValue(ctx, s.namespace, key, &f)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		if err := schema.Check(&f); err != nil {
			s.logger.Warn("skipping malformed folder record",
				zap.String("key", key),
				zap.Error(err),
			)
			continue
		}
		folders = append(folders, f)
	}
	return folders, nil
}

// Trash soft-deletes a folder. Re-trashing refreshes DeletedAt.
func (s *Store) Trash(ctx context.Context, id string) (*models.Folder, error) {
	f, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	f.Trashed = true
	f.DeletedAt = &now

	if err := s.kv.SetValue(ctx, s.namespace, storeutil.Key(storeutil.FolderPrefix, id), f); err != nil {
		return nil, err
	}
	return f, nil
}

// Restore clears the trash flag.
func (s *Store) Restore(ctx context.Context, id string) (*models.Folder, error) {
	f, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	f.Trashed = false
	f.DeletedAt = nil

	if err := s.kv.SetValue(ctx, s.namespace, storeutil.Key(storeutil.FolderPrefix, id), f); err != nil {
		return nil, err
	}
	return f, nil
}

// Delete permanently removes the record.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.kv.DeleteValue(ctx, s.namespace, storeutil.Key(storeutil.FolderPrefix, id))
}

// NameExistsInParent checks if a non-trashed folder with the given name
// exists under the parent (case-folded comparison).
func (s *Store) NameExistsInParent(ctx context.Context, name, parentID, excludeID string) (bool, error) {
	folders, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	folded := text.Fold(name)
	for _, f := range folders {
		if f.Trashed || f.ID == excludeID || f.ParentID != parentID {
			continue
		}
		if text.Fold(f.Name) == folded {
			return true, nil
		}
	}
	return false, nil
}
