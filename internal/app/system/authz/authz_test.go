package authz

import (
	"testing"
	"time"

	"github.com/dalemusser/stratadrive/internal/domain/models"
)

func viewer() *models.Viewer {
	return &models.Viewer{
		ID:       "alice",
		Groups:   map[string]struct{}{"g1": {}},
		Roles:    map[string]struct{}{"r1": {}},
		OrgUnits: map[string]struct{}{"ou1": {}},
	}
}

func TestGrantMatches(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name  string
		grant models.Permission
		want  bool
	}{
		{"direct user id", models.Permission{UserID: "alice"}, true},
		{"other user id", models.Permission{UserID: "bob"}, false},
		{"user target", models.Permission{TargetType: models.TargetUser, TargetID: "alice"}, true},
		{"group membership", models.Permission{TargetType: models.TargetGroup, TargetID: "g1"}, true},
		{"role membership", models.Permission{TargetType: models.TargetRole, TargetID: "r1"}, true},
		{"org unit membership", models.Permission{TargetType: models.TargetOrgUnit, TargetID: "ou1"}, true},
		{"group not a member", models.Permission{TargetType: models.TargetGroup, TargetID: "g9"}, false},
		{"expired grant never matches", models.Permission{UserID: "alice", ExpiresAt: &past}, false},
		{"future expiry still matches", models.Permission{UserID: "alice", ExpiresAt: &future}, true},
		{"empty grant", models.Permission{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GrantMatches(&tt.grant, viewer(), now); got != tt.want {
				t.Errorf("GrantMatches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccessible(t *testing.T) {
	r := New("")
	grants := []models.Permission{
		{ID: "p1", FileID: "fileA", UserID: "alice", Access: models.AccessRead},
		{ID: "p2", FileID: "fileB", UserID: "bob", Access: models.AccessRead},
	}

	if !r.Accessible("fileA", grants, viewer()) {
		t.Error("alice should reach fileA through her grant")
	}
	if r.Accessible("fileB", grants, viewer()) {
		t.Error("alice has no grant on fileB")
	}
	if r.Accessible("fileC", grants, viewer()) {
		t.Error("no grants reference fileC")
	}
}

func TestFallbackViewer(t *testing.T) {
	grants := []models.Permission{
		{ID: "p1", FileID: "fileA", UserID: "service-account", Access: models.AccessRead},
	}

	t.Run("empty fallback fails closed", func(t *testing.T) {
		if v := New("").FallbackViewer(); v != nil {
			t.Errorf("FallbackViewer() = %+v, want nil", v)
		}
	})

	t.Run("configured fallback matches its grants", func(t *testing.T) {
		r := New("service-account")
		v := r.FallbackViewer()
		if v == nil || v.ID != "service-account" {
			t.Fatalf("FallbackViewer() = %+v", v)
		}
		if !r.Accessible("fileA", grants, v) {
			t.Error("fallback identity holds a grant on fileA")
		}
		if r.Accessible("fileB", grants, v) {
			t.Error("fallback identity has no grant on fileB")
		}
	})
}

func TestSharedFileIDs(t *testing.T) {
	r := New("")
	past := time.Now().Add(-time.Hour)
	grants := []models.Permission{
		{ID: "p1", FileID: "fileA", UserID: "alice"},
		{ID: "p2", FileID: "fileB", TargetType: models.TargetGroup, TargetID: "g1"},
		{ID: "p3", FileID: "fileC", UserID: "alice", ExpiresAt: &past},
		{ID: "p4", FileID: "fileD", UserID: "bob"},
	}

	shared := r.SharedFileIDs(grants, viewer())
	if _, ok := shared["fileA"]; !ok {
		t.Error("fileA missing from shared set")
	}
	if _, ok := shared["fileB"]; !ok {
		t.Error("fileB (group grant) missing from shared set")
	}
	if _, ok := shared["fileC"]; ok {
		t.Error("expired grant leaked fileC into shared set")
	}
	if _, ok := shared["fileD"]; ok {
		t.Error("bob's grant leaked fileD into alice's shared set")
	}
}
