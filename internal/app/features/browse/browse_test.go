package browse

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/stratadrive/internal/app/store/file"
	"github.com/dalemusser/stratadrive/internal/app/store/folder"
	"github.com/dalemusser/stratadrive/internal/app/store/permission"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/app/system/authz"
	"github.com/dalemusser/stratadrive/internal/app/system/drive"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/stratadrive/internal/testutil"
	"go.uber.org/zap"
)

type fixture struct {
	handler *Handler
	files   *file.Store
	folders *folder.Store
	perms   *permission.Store
	router  http.Handler
}

func setup(t *testing.T) *fixture {
	t.Helper()
	fd := testutil.NewFakeDatastore(t)
	kv := fd.Client(t)
	logger := zap.NewNop()

	files := file.New(kv, "test-ns", logger)
	folders := folder.New(kv, "test-ns", logger)
	perms := permission.New(kv, "test-ns", logger)
	h := NewHandler(files, folders, perms, authz.New(""), logger)
	return &fixture{handler: h, files: files, folders: folders, perms: perms, router: Routes(h)}
}

func alice() *models.Viewer {
	return &models.Viewer{ID: "alice", Name: "Alice"}
}

func (fx *fixture) get(t *testing.T, viewer *models.Viewer, path string) (*httptest.ResponseRecorder, sectionResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if viewer != nil {
		req = auth.WithTestViewer(req, viewer)
	}
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	var resp sectionResponse
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, resp
}

func TestSection(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	if _, err := fx.files.Create(ctx, file.CreateInput{Name: "mine.txt", OwnerID: "alice"}); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	theirs, err := fx.files.Create(ctx, file.CreateInput{Name: "theirs.txt", OwnerID: "bob"})
	if err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if _, err := fx.folders.Create(ctx, folder.CreateInput{Name: "Projects", OwnerID: "alice"}); err != nil {
		t.Fatalf("seed folder: %v", err)
	}

	t.Run("my-drive lists own files and folders", func(t *testing.T) {
		rec, resp := fx.get(t, alice(), "/my-drive")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		if len(resp.Files) != 1 || resp.Files[0].Name != "mine.txt" {
			t.Errorf("files = %+v, want only mine.txt", resp.Files)
		}
		if len(resp.Folders) != 1 || resp.Folders[0].Name != "Projects" {
			t.Errorf("folders = %+v, want only Projects", resp.Folders)
		}
	})

	t.Run("shared lists granted files", func(t *testing.T) {
		if _, err := fx.perms.Grant(ctx, permission.GrantInput{
			FileID: theirs.ID, UserID: "alice", Access: models.AccessRead, GrantedBy: "bob",
		}); err != nil {
			t.Fatalf("grant: %v", err)
		}

		rec, resp := fx.get(t, alice(), "/shared")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if len(resp.Files) != 1 || resp.Files[0].ID != theirs.ID {
			t.Errorf("files = %+v, want bob's granted file", resp.Files)
		}
	})

	t.Run("filter narrows by query", func(t *testing.T) {
		rec, resp := fx.get(t, alice(), "/my-drive?q=nomatch")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if len(resp.Files) != 0 || len(resp.Folders) != 0 {
			t.Errorf("expected empty result, got %d files %d folders", len(resp.Files), len(resp.Folders))
		}
	})

	t.Run("empty sections marshal as arrays", func(t *testing.T) {
		req := auth.WithTestViewer(httptest.NewRequest(http.MethodGet, "/trash", nil), alice())
		rec := httptest.NewRecorder()
		fx.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		body := rec.Body.String()
		if !bytes.Contains([]byte(body), []byte(`"files":[]`)) {
			t.Errorf("files should marshal as [], got %s", body)
		}
	})

	t.Run("unknown section is 400", func(t *testing.T) {
		rec, _ := fx.get(t, alice(), "/everything")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("bad filter parameter is 400", func(t *testing.T) {
		rec, _ := fx.get(t, alice(), "/my-drive?starred=perhaps")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("no viewer is 401", func(t *testing.T) {
		rec, _ := fx.get(t, nil, "/my-drive")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func TestTrail(t *testing.T) {
	fx := setup(t)

	post := func(t *testing.T, payload any) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
		t.Helper()
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPost, "/trail", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		fx.router.ServeHTTP(rec, req)

		var resp map[string]json.RawMessage
		if rec.Code == http.StatusOK {
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
		}
		return rec, resp
	}

	t.Run("truncates to clicked frame", func(t *testing.T) {
		rec, resp := post(t, map[string]any{
			"trail": []drive.Breadcrumb{
				{ID: "a", Name: "A"},
				{ID: "b", Name: "B"},
				{ID: "c", Name: "C"},
			},
			"clickedId": "b",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var trail []drive.Breadcrumb
		if err := json.Unmarshal(resp["trail"], &trail); err != nil {
			t.Fatalf("decode trail: %v", err)
		}
		if len(trail) != 2 || trail[1].ID != "b" {
			t.Errorf("trail = %+v", trail)
		}
	})

	t.Run("root click clears the trail", func(t *testing.T) {
		rec, resp := post(t, map[string]any{
			"trail":     []drive.Breadcrumb{{ID: "a", Name: "A"}},
			"clickedId": "",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if string(resp["trail"]) != "[]" {
			t.Errorf("trail = %s, want []", resp["trail"])
		}
	})

	t.Run("invalid JSON is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/trail", bytes.NewReader([]byte("not json")))
		rec := httptest.NewRecorder()
		fx.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}
