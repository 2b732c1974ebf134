package file

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/stratadrive/internal/testutil"
	"go.uber.org/zap"
)

func newStore(t *testing.T) (*Store, *testutil.FakeDatastore) {
	t.Helper()
	fd := testutil.NewFakeDatastore(t)
	return New(fd.Client(t), "test-ns", zap.NewNop()), fd
}

func strPtr(s string) *string { return &s }

func TestCreateAndGet(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	f, err := s.Create(ctx, CreateInput{
		Name:     "report.pdf",
		Type:     models.TypeDocument,
		MimeType: "application/pdf",
		Size:     2048,
		OwnerID:  "alice",
		Content:  "aGVsbG8=",
		Checksum: "abc123",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if f.ID == "" {
		t.Fatal("Create returned empty id")
	}
	if f.SizeLabel != "2.0 KB" {
		t.Errorf("SizeLabel = %q, want 2.0 KB", f.SizeLabel)
	}
	if f.UploadStatus != models.UploadCompleted {
		t.Errorf("UploadStatus = %q, want completed", f.UploadStatus)
	}

	got, err := s.GetByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "report.pdf" || got.Content != "aGVsbG8=" {
		t.Errorf("round-trip mismatch: %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.GetByID(context.Background(), "no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdate_PreservesContentFields(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	f, err := s.Create(ctx, CreateInput{
		Name:     "data.csv",
		OwnerID:  "alice",
		Size:     10,
		Content:  "Y29udGVudA==",
		Checksum: "deadbeef00000000",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := s.Update(ctx, f.ID, UpdateInput{
		Name:        strPtr("renamed.csv"),
		Description: strPtr("quarterly numbers"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if updated.Name != "renamed.csv" {
		t.Errorf("Name = %q, want renamed.csv", updated.Name)
	}
	if updated.Description != "quarterly numbers" {
		t.Errorf("Description = %q", updated.Description)
	}
	// A metadata edit must never destroy previously uploaded binary data.
	if updated.Content != "Y29udGVudA==" {
		t.Errorf("Content = %q, want untouched", updated.Content)
	}
	if updated.Checksum != "deadbeef00000000" {
		t.Errorf("Checksum = %q, want untouched", updated.Checksum)
	}
	if !updated.ModifiedAt.After(f.ModifiedAt) && !updated.ModifiedAt.Equal(f.ModifiedAt) {
		t.Error("ModifiedAt went backwards")
	}
	// Untouched fields survive.
	if updated.OwnerID != "alice" {
		t.Errorf("OwnerID = %q, want alice", updated.OwnerID)
	}
}

func TestReplaceContent(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	f, err := s.Create(ctx, CreateInput{Name: "v1.bin", OwnerID: "alice", Size: 4, Content: "b2xk"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.ReplaceContent(ctx, f.ID, 2048, "", "https://blobs/x/data", "feedface00000000", models.UploadCompleted)
	if err != nil {
		t.Fatalf("ReplaceContent: %v", err)
	}
	if got.Content != "" || got.URL != "https://blobs/x/data" {
		t.Errorf("content swap incomplete: content=%q url=%q", got.Content, got.URL)
	}
	if got.Size != 2048 || got.SizeLabel != "2.0 KB" {
		t.Errorf("size = %d / %q", got.Size, got.SizeLabel)
	}
	// Name and ownership are untouched by a content replace.
	if got.Name != "v1.bin" || got.OwnerID != "alice" {
		t.Errorf("metadata disturbed: %+v", got)
	}
}

func TestTrashRestore(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	f, err := s.Create(ctx, CreateInput{Name: "junk.txt", OwnerID: "alice"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	trashed, err := s.Trash(ctx, f.ID)
	if err != nil {
		t.Fatalf("Trash: %v", err)
	}
	if !trashed.Trashed || trashed.DeletedAt == nil {
		t.Errorf("trash flags not set: %+v", trashed)
	}
	firstDeleted := *trashed.DeletedAt

	// Re-trashing refreshes the deletion timestamp.
	again, err := s.Trash(ctx, f.ID)
	if err != nil {
		t.Fatalf("Trash again: %v", err)
	}
	if again.DeletedAt.Before(firstDeleted) {
		t.Error("re-trash moved DeletedAt backwards")
	}

	restored, err := s.Restore(ctx, f.ID)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Trashed || restored.DeletedAt != nil {
		t.Errorf("restore did not clear trash state: %+v", restored)
	}
}

func TestDelete(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	f, err := s.Create(ctx, CreateInput{Name: "gone.txt", OwnerID: "alice"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete(ctx, f.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.GetByID(ctx, f.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after delete", err)
	}
}

func TestList_SkipsMalformedRecords(t *testing.T) {
	s, fd := newStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, CreateInput{Name: "good.txt", OwnerID: "alice"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	// A record missing its required fields fails the schema boundary.
	fd.Seed(t, "test-ns", "file_broken", map[string]any{"name": "no id or owner"})

	files, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 1 || files[0].Name != "good.txt" {
		t.Errorf("files = %+v, want only the valid record", files)
	}
}

func TestNameExistsInFolder(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	f, err := s.Create(ctx, CreateInput{Name: "Budget.xlsx", OwnerID: "alice", ParentID: "dir1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	t.Run("case-folded match", func(t *testing.T) {
		exists, err := s.NameExistsInFolder(ctx, "budget.XLSX", "dir1", "")
		if err != nil {
			t.Fatalf("NameExistsInFolder: %v", err)
		}
		if !exists {
			t.Error("expected case-insensitive duplicate hit")
		}
	})

	t.Run("different folder does not collide", func(t *testing.T) {
		exists, err := s.NameExistsInFolder(ctx, "Budget.xlsx", "dir2", "")
		if err != nil {
			t.Fatalf("NameExistsInFolder: %v", err)
		}
		if exists {
			t.Error("same name in another folder must not collide")
		}
	})

	t.Run("excluded id is ignored for rename", func(t *testing.T) {
		exists, err := s.NameExistsInFolder(ctx, "Budget.xlsx", "dir1", f.ID)
		if err != nil {
			t.Fatalf("NameExistsInFolder: %v", err)
		}
		if exists {
			t.Error("excluding the file itself must not report a duplicate")
		}
	})

	t.Run("trashed files do not collide", func(t *testing.T) {
		if _, err := s.Trash(ctx, f.ID); err != nil {
			t.Fatalf("Trash: %v", err)
		}
		exists, err := s.NameExistsInFolder(ctx, "Budget.xlsx", "dir1", "")
		if err != nil {
			t.Fatalf("NameExistsInFolder: %v", err)
		}
		if exists {
			t.Error("trashed file must not block the name")
		}
	})
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.bytes); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}
