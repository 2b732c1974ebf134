package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/system/identity"
	"go.uber.org/zap"
)

// FakeUser is one credential known to the fake identity endpoint.
type FakeUser struct {
	Username string
	Password string
	ID       string
	Name     string
	Email    string
	Groups   []string
	Roles    []string
	OrgUnits []string
}

// FakeIdentity is an in-memory stand-in for the platform identity endpoint.
type FakeIdentity struct {
	Users    []FakeUser
	OrgUnits []map[string]any

	Server *httptest.Server
}

// NewFakeIdentity starts the fake server and registers cleanup on t.
func NewFakeIdentity(t *testing.T, users ...FakeUser) *FakeIdentity {
	t.Helper()
	fi := &FakeIdentity{Users: users}
	fi.Server = httptest.NewServer(http.HandlerFunc(fi.serve))
	t.Cleanup(fi.Server.Close)
	return fi
}

// Client builds an identity.Client against the fake.
func (fi *FakeIdentity) Client(t *testing.T) *identity.Client {
	t.Helper()
	c, err := identity.New(identity.Config{
		BaseURL:  fi.Server.URL + "/api",
		Username: "service",
		Password: "service",
		Timeout:  5 * time.Second,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("identity.New: %v", err)
	}
	return c
}

func (fi *FakeIdentity) serve(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/me":
		user, pass, _ := r.BasicAuth()
		for _, u := range fi.Users {
			if u.Username != user || u.Password != pass {
				continue
			}
			writeIdentityJSON(w, map[string]any{
				"id":                u.ID,
				"name":              u.Name,
				"email":             u.Email,
				"userGroups":        idRefs(u.Groups),
				"userRoles":         idRefs(u.Roles),
				"organisationUnits": idRefs(u.OrgUnits),
			})
			return
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case "/api/organisationUnits":
		writeIdentityJSON(w, map[string]any{"organisationUnits": fi.OrgUnits})
	default:
		http.NotFound(w, r)
	}
}

func idRefs(ids []string) []map[string]string {
	refs := make([]map[string]string, len(ids))
	for i, id := range ids {
		refs[i] = map[string]string{"id": id}
	}
	return refs
}

func writeIdentityJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
