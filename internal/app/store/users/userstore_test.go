package users

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/stratadrive/internal/testutil"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*Store, *testutil.FakeDatastore) {
	t.Helper()
	fd := testutil.NewFakeDatastore(t)
	return New(fd.Client(t), "test-ns", zap.NewNop()), fd
}

func TestCacheAndGet(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()

	u := models.User{ID: "u1", Name: "Alice", Email: "alice@example.org", Permissions: []string{"ALL"}}
	if err := s.Cache(ctx, u); err != nil {
		t.Fatalf("Cache: %v", err)
	}

	got, err := s.GetCached(ctx, "u1")
	if err != nil {
		t.Fatalf("GetCached: %v", err)
	}
	if got.Name != "Alice" || got.Email != "alice@example.org" {
		t.Errorf("user = %+v", got)
	}

	if _, err := s.GetCached(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListCached(t *testing.T) {
	s, fd := setup(t)
	ctx := context.Background()

	for _, u := range []models.User{
		{ID: "u1", Name: "Alice"},
		{ID: "u2", Name: "Bob"},
	} {
		if err := s.Cache(ctx, u); err != nil {
			t.Fatalf("Cache: %v", err)
		}
	}
	// A record without an id fails the schema check and must be skipped.
	fd.Seed(t, "test-ns", "user_broken", map[string]string{"name": "No ID"})

	list, err := s.ListCached(ctx)
	if err != nil {
		t.Fatalf("ListCached: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("len(list) = %d, want 2: %+v", len(list), list)
	}
}
