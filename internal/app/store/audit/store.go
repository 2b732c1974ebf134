// Package audit provides the append-only store for audit log entries.
package audit

import (
	"context"
	"sort"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/store/keyvalue"
	"github.com/dalemusser/stratadrive/internal/app/store/storeutil"
	"github.com/dalemusser/stratadrive/internal/app/system/schema"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store manages audit entries under audit_<id> keys. The application only
// ever appends; entries are removed solely by administrative namespace
// deletion, which is outside this store.
type Store struct {
	kv        *keyvalue.Client
	namespace string
	logger    *zap.Logger
}

// New creates a new audit Store.
func New(kv *keyvalue.Client, namespace string, logger *zap.Logger) *Store {
	return &Store{kv: kv, namespace: namespace, logger: logger}
}

// AppendInput contains the input for recording one audit entry.
type AppendInput struct {
	FileID   string
	FileName string
	Action   string
	UserID   string
	UserName string
	Details  string
}

// Append records a new entry.
func (s *Store) Append(ctx context.Context, input AppendInput) (*models.AuditLogEntry, error) {
	e := models.AuditLogEntry{
		ID:        uuid.NewString(),
		FileID:    input.FileID,
		FileName:  input.FileName,
		Action:    input.Action,
		UserID:    input.UserID,
		UserName:  input.UserName,
		Timestamp: time.Now().UTC(),
		Details:   input.Details,
	}

	if err := s.kv.SetValue(ctx, s.namespace, storeutil.Key(storeutil.AuditPrefix, e.ID), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// QueryFilter defines filters for listing audit entries. Zero values are
// pass-through.
type QueryFilter struct {
	FileID    string
	UserID    string
	Action    string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
}

// List returns entries matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter QueryFilter) ([]models.AuditLogEntry, error) {
	keys, err := s.kv.ListKeys(ctx, s.namespace)
	if err != nil {
		return nil, err
	}

	var entries []models.AuditLogEntry
	for _, key := range storeutil.MatchPrefix(keys, storeutil.AuditPrefix) {
		var e models.AuditLogEntry
		found, err := s.kv.GetValue(ctx, s.namespace, key, &e)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		if err := schema.Check(&e); err != nil {
			s.logger.Warn("skipping malformed audit record",
				zap.String("key", key),
				zap.Error(err),
			)
			continue
		}
		if filter.FileID != "" && e.FileID != filter.FileID {
			continue
		}
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.StartTime != nil && e.Timestamp.Before(*filter.StartTime) {
			continue
		}
		if filter.EndTime != nil && e.Timestamp.After(*filter.EndTime) {
			continue
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}
	return entries, nil
}
