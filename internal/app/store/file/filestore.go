// Package file provides the datastore-backed store for file records.
package file

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

// ErrNotFound is returned when a file record does not exist. A caller editing
// a file that was concurrently deleted sees this as "no changes persisted".
var ErrNotFound = errors.New("file not found")

// Store provides access to file records in the datastore namespace.
type Store struct {
	kv        *keyvalue.Client
	namespace string
	logger    *zap.Logger
}

// New creates a new file store.
func New(kv *keyvalue.Client, namespace string, logger *zap.Logger) *Store {
	return &Store{kv: kv, namespace: namespace, logger: logger}
}

// CreateInput contains the input for creating a file record. Content, URL,
// Checksum and UploadStatus come from the content transfer result.
type CreateInput struct {
	Name         string
	Type         string
	MimeType     string
	Size         int64
	Description  string
	OwnerID      string
	ParentID     string
	Path         string
	Tags         []string
	Language     string
	DocumentType string
	Version      string

	Content      string
	URL          string
	Checksum     string
	UploadStatus string
}

// Create writes a new file record.
func (s *Store) Create(ctx context.Context, input CreateInput) (*models.File, error) {
	now := time.Now().UTC()
	f := models.File{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Type:         input.Type,
		MimeType:     input.MimeType,
		Size:         input.Size,
		SizeLabel:    FormatSize(input.Size),
		Description:  input.Description,
		CreatedAt:    now,
		ModifiedAt:   now,
		OwnerID:      input.OwnerID,
		Tags:         input.Tags,
		Language:     input.Language,
		DocumentType: input.DocumentType,
		Version:      input.Version,
		ParentID:     input.ParentID,
		Path:         input.Path,
		Content:      input.Content,
		URL:          input.URL,
		Checksum:     input.Checksum,
		UploadStatus: input.UploadStatus,
	}
	if f.UploadStatus == "" {
		f.UploadStatus = models.UploadCompleted
	}

	if err := s.kv.SetValue(ctx, s.namespace, storeutil.Key(storeutil.FilePrefix, f.ID), &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// GetByID retrieves a file by id. The decoded record passes the schema
// boundary; a malformed blob is an error, not a silently wrong File.
func (s *Store) GetByID(ctx context.Context, id string) (*models.File, error) {
	var f models.File
	found, err := s.kv.GetValue(ctx, s.namespace, storeutil.Key(storeutil.FilePrefix, id), &f)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	if err := schema.Check(&f); err != nil {
		return nil, fmt.Errorf("file %s: %w", id, err)
	}
	return &f, nil
}

// UpdateInput contains the metadata fields a caller may change. Nil fields
// are left untouched.
type UpdateInput struct {
	Name         *string
	Description  *string
	Tags         *[]string
	Starred      *bool
	Shared       *bool
	Language     *string
	DocumentType *string
	Version      *string
	ParentID     *string
	Path         *string
}

// Update merges the caller's changed fields into the current stored record.
//
// The current record is fetched first and only the requested fields are
// replaced. Content, URL, Checksum and UploadStatus always ride along from
// the stored record; a metadata edit must never destroy previously uploaded
// binary data.
func (s *Store) Update(ctx context.Context, id string, input UpdateInput) (*models.File, error) {
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
	if input.Language != nil {
		f.Language = *input.Language
	}
	if input.DocumentType != nil {
		f.DocumentType = *input.DocumentType
	}
	if input.Version != nil {
		f.Version = *input.Version
	}
	if input.ParentID != nil {
		f.ParentID = *input.ParentID
	}
	if input.Path != nil {
		f.Path = *input.Path
	}
	f.ModifiedAt = time.Now().UTC()

	if err := s.kv.SetValue(ctx, s.namespace, storeutil.Key(storeutil.FilePrefix, id), f); err != nil {
		return nil, err
	}
	return f, nil
}

// ReplaceContent swaps in a newly uploaded binary for an existing record.
// This is the only path besides Create that may touch Content/URL/Checksum.
func (s *Store) ReplaceContent(ctx context.Context, id string, size int64, content, url, checksum, uploadStatus string) (*models.File, error) {
	f, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	f.Size = size
	f.SizeLabel = FormatSize(size)
	f.Content = content
	f.URL = url
	f.Checksum = checksum
	f.UploadStatus = uploadStatus
	f.ModifiedAt = time.Now().UTC()

	if err := s.kv.SetValue(ctx, s.namespace, storeutil.Key(storeutil.FilePrefix, id), f); err != nil {
		return nil, err
	}
	return f, nil
}

// List returns every file record in the namespace: one listing call plus one
// fetch per file_ key. Malformed records are skipped with a warning.
func (s *Store) List(ctx context.Context) ([]models.File, error) {
	keys, err := s.kv.ListKeys(ctx, s.namespace)
	if err != nil {
		return nil, err
	}

	var files []models.File
	for _, key := range storeutil.MatchPrefix(keys, storeutil.FilePrefix) {
		var f models.File
		found, err := s.kv.GetValue(ctx, s.namespace, key, &f)
		if err != nil {
			return nil, err
		}
		if !found {
			// deleted between the listing and the fetch
			continue
		}
		if err := schema.Check(&f); err != nil {
			s.logger.Warn("skipping malformed file record",
				zap.String("key", key),
				zap.Error(err),
			)
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

// Trash soft-deletes a file: trashed=true plus a deletion timestamp. Calling
// it on an already-trashed file refreshes DeletedAt.
func (s *Store) Trash(ctx context.Context, id string) (*models.File, error) {
	f, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	f.Trashed = true
	f.DeletedAt = &now

	if err := s.kv.SetValue(ctx, s.namespace, storeutil.Key(storeutil.FilePrefix, id), f); err != nil {
		return nil, err
	}
	return f, nil
}

// Restore clears the trash flag.
func (s *Store) Restore(ctx context.Context, id string) (*models.File, error) {
	f, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	f.Trashed = false
	f.DeletedAt = nil

	if err := s.kv.SetValue(ctx, s.namespace, storeutil.Key(storeutil.FilePrefix, id), f); err != nil {
		return nil, err
	}
	return f, nil
}

// Delete permanently removes the record. The primary delete flow only
// trashes; this is the empty-trash path.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.kv.DeleteValue(ctx, s.namespace, storeutil.Key(storeutil.FilePrefix, id))
}

// NameExistsInFolder checks if a non-trashed file with the given name exists
// in the folder (case-folded comparison). Pass excludeID to ignore a
// specific file when renaming.
func (s *Store) NameExistsInFolder(ctx context.Context, name, parentID, excludeID string) (bool, error) {
	files, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	folded := text.Fold(name)
	for _, f := range files {
		if f.Trashed || f.ID == excludeID || f.ParentID != parentID {
			continue
		}
		if text.Fold(f.Name) == folded {
			return true, nil
		}
	}
	return false, nil
}

// FormatSize formats a byte count to a human-readable string.
func FormatSize(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
