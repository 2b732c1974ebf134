package settings

import (
	"context"
	"testing"

	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/stratadrive/internal/testutil"
	"go.uber.org/zap"
)

func setup(t *testing.T) *Store {
	t.Helper()
	fd := testutil.NewFakeDatastore(t)
	return New(fd.Client(t), "test-ns", zap.NewNop())
}

func TestGetReturnsDefaultsWhenEmpty(t *testing.T) {
	s := setup(t)
	cfg, err := s.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cfg.Theme != "light" || cfg.PageSize != 25 {
		t.Errorf("settings = %+v, want the defaults", cfg)
	}
}

func TestPutThenGet(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	want := models.Settings{Theme: "dark", Locale: "de", PageSize: 100, ViewMode: "list"}
	if err := s.Put(ctx, want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Theme != "dark" || got.Locale != "de" || got.PageSize != 100 {
		t.Errorf("settings = %+v", got)
	}
}

func TestEnsureDefaults(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	if err := s.EnsureDefaults(ctx); err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}

	// A second call must not clobber an existing record.
	if err := s.Put(ctx, models.Settings{Theme: "dark", Locale: "en", PageSize: 10, ViewMode: "grid"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.EnsureDefaults(ctx); err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}
	got, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Theme != "dark" {
		t.Errorf("EnsureDefaults overwrote stored settings: %+v", got)
	}
}
