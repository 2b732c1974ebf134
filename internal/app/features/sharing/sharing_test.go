package sharing

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	auditstore "github.com/dalemusser/stratadrive/internal/app/store/audit"
	"github.com/dalemusser/stratadrive/internal/app/store/file"
	"github.com/dalemusser/stratadrive/internal/app/store/permission"
	"github.com/dalemusser/stratadrive/internal/app/store/users"
	"github.com/dalemusser/stratadrive/internal/app/system/auditlog"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/stratadrive/internal/testutil"
	"go.uber.org/zap"
)

type fixture struct {
	files  *file.Store
	perms  *permission.Store
	users  *users.Store
	ident  *testutil.FakeIdentity
	router http.Handler
}

func setup(t *testing.T) *fixture {
	t.Helper()
	fd := testutil.NewFakeDatastore(t)
	kv := fd.Client(t)
	logger := zap.NewNop()

	fi := testutil.NewFakeIdentity(t)
	fi.OrgUnits = []map[string]any{
		{"id": "ou-root", "name": "National", "level": 1},
		{"id": "ou-east", "name": "East Region", "level": 2, "parent": map[string]string{"id": "ou-root"}},
	}

	files := file.New(kv, "test-ns", logger)
	perms := permission.New(kv, "test-ns", logger)
	audits := auditstore.New(kv, "test-ns", logger)
	userStore := users.New(kv, "test-ns", logger)
	h := NewHandler(files, perms, userStore, fi.Client(t), auditlog.New(audits, logger, "db"), logger)
	return &fixture{files: files, perms: perms, users: userStore, ident: fi, router: Routes(h)}
}

func alice() *models.Viewer { return &models.Viewer{ID: "alice", Name: "Alice"} }
func bob() *models.Viewer   { return &models.Viewer{ID: "bob", Name: "Bob"} }

func (fx *fixture) do(t *testing.T, viewer *models.Viewer, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if viewer != nil {
		req = auth.WithTestViewer(req, viewer)
	}
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func (fx *fixture) seedFile(t *testing.T, owner string) *models.File {
	t.Helper()
	f, err := fx.files.Create(context.Background(), file.CreateInput{Name: "plan.txt", OwnerID: owner})
	if err != nil {
		t.Fatalf("seed file: %v", err)
	}
	return f
}

func TestGrant(t *testing.T) {
	t.Run("owner grants read to a user", func(t *testing.T) {
		fx := setup(t)
		f := fx.seedFile(t, "alice")

		rec := fx.do(t, alice(), http.MethodPost, "/files/"+f.ID, map[string]string{
			"userId": "bob", "access": "read",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		var g models.Permission
		if err := json.NewDecoder(rec.Body).Decode(&g); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if g.UserID != "bob" || g.Access != models.AccessRead || g.GrantedBy != "alice" {
			t.Errorf("grant = %+v", g)
		}

		got, err := fx.files.GetByID(context.Background(), f.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if !got.Shared {
			t.Error("shared flag not set after first grant")
		}
	})

	t.Run("group target grant", func(t *testing.T) {
		fx := setup(t)
		f := fx.seedFile(t, "alice")

		rec := fx.do(t, alice(), http.MethodPost, "/files/"+f.ID, map[string]string{
			"targetType": "group", "targetId": "g-finance", "access": "write",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		var g models.Permission
		if err := json.NewDecoder(rec.Body).Decode(&g); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if g.TargetType != "group" || g.TargetID != "g-finance" {
			t.Errorf("grant = %+v", g)
		}
	})

	t.Run("non-owner is 403", func(t *testing.T) {
		fx := setup(t)
		f := fx.seedFile(t, "alice")
		rec := fx.do(t, bob(), http.MethodPost, "/files/"+f.ID, map[string]string{"userId": "carol", "access": "read"})
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("bad access level is 400", func(t *testing.T) {
		fx := setup(t)
		f := fx.seedFile(t, "alice")
		rec := fx.do(t, alice(), http.MethodPost, "/files/"+f.ID, map[string]string{"userId": "bob", "access": "owner"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("target-less grant is 400", func(t *testing.T) {
		fx := setup(t)
		f := fx.seedFile(t, "alice")
		rec := fx.do(t, alice(), http.MethodPost, "/files/"+f.ID, map[string]string{"access": "read"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("missing file is 404", func(t *testing.T) {
		fx := setup(t)
		rec := fx.do(t, alice(), http.MethodPost, "/files/no-such", map[string]string{"userId": "bob", "access": "read"})
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestListGrants(t *testing.T) {
	fx := setup(t)
	f := fx.seedFile(t, "alice")

	t.Run("empty list marshals as array", func(t *testing.T) {
		rec := fx.do(t, alice(), http.MethodGet, "/files/"+f.ID, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if got := rec.Body.String(); !bytes.Contains([]byte(got), []byte("[]")) {
			t.Errorf("body = %s, want []", got)
		}
	})

	t.Run("lists the file's grants only", func(t *testing.T) {
		ctx := context.Background()
		if _, err := fx.perms.Grant(ctx, permission.GrantInput{FileID: f.ID, UserID: "bob", Access: models.AccessRead, GrantedBy: "alice"}); err != nil {
			t.Fatalf("grant: %v", err)
		}
		other := fx.seedFile(t, "alice")
		if _, err := fx.perms.Grant(ctx, permission.GrantInput{FileID: other.ID, UserID: "carol", Access: models.AccessRead, GrantedBy: "alice"}); err != nil {
			t.Fatalf("grant: %v", err)
		}

		rec := fx.do(t, alice(), http.MethodGet, "/files/"+f.ID, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var grants []models.Permission
		if err := json.NewDecoder(rec.Body).Decode(&grants); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(grants) != 1 || grants[0].UserID != "bob" {
			t.Errorf("grants = %+v", grants)
		}
	})

	t.Run("non-owner is 403", func(t *testing.T) {
		rec := fx.do(t, bob(), http.MethodGet, "/files/"+f.ID, nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})
}

func TestRevoke(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	f := fx.seedFile(t, "alice")

	g, err := fx.perms.Grant(ctx, permission.GrantInput{FileID: f.ID, UserID: "bob", Access: models.AccessRead, GrantedBy: "alice"})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	shared := true
	if _, err := fx.files.Update(ctx, f.ID, file.UpdateInput{Shared: &shared}); err != nil {
		t.Fatalf("update: %v", err)
	}

	t.Run("non-owner cannot revoke", func(t *testing.T) {
		rec := fx.do(t, bob(), http.MethodDelete, "/grants/"+g.ID, nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("last revoke clears the shared flag", func(t *testing.T) {
		rec := fx.do(t, alice(), http.MethodDelete, "/grants/"+g.ID, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		got, err := fx.files.GetByID(ctx, f.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.Shared {
			t.Error("shared flag still set after last grant revoked")
		}
	})

	t.Run("missing grant is 404", func(t *testing.T) {
		rec := fx.do(t, alice(), http.MethodDelete, "/grants/no-such", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestOrgUnits(t *testing.T) {
	t.Run("returns the directory", func(t *testing.T) {
		fx := setup(t)
		rec := fx.do(t, alice(), http.MethodGet, "/org-units", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var units []models.OrgUnit
		if err := json.NewDecoder(rec.Body).Decode(&units); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(units) != 2 {
			t.Fatalf("units = %+v", units)
		}
		if units[1].ParentID != "ou-root" {
			t.Errorf("ParentID = %q, want ou-root", units[1].ParentID)
		}
	})

	t.Run("identity outage is 502", func(t *testing.T) {
		fx := setup(t)
		fx.ident.Server.Close()
		rec := fx.do(t, alice(), http.MethodGet, "/org-units", nil)
		if rec.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", rec.Code)
		}
	})
}

func TestUsers(t *testing.T) {
	fx := setup(t)
	if err := fx.users.Cache(context.Background(), models.User{ID: "u1", Name: "Alice Example", Email: "alice@example.org"}); err != nil {
		t.Fatalf("cache: %v", err)
	}

	rec := fx.do(t, alice(), http.MethodGet, "/users", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list []models.User
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].ID != "u1" {
		t.Errorf("list = %+v", list)
	}
}
