// Package authz implements the permission resolver: given a file's grants
// and a viewer identity, decide whether any active grant applies.
package authz

import (
	"time"

	"github.com/dalemusser/stratadrive/internal/domain/models"
)

// Resolver evaluates access grants against viewer identities.
//
// FallbackIdentity is the degraded mode for when the identity provider is
// unreachable: grants are compared against this single configured identity
// string instead of a resolved viewer. It is an availability tradeoff, not a
// security boundary; deployments wanting to fail closed leave it empty.
type Resolver struct {
	FallbackIdentity string
}

// New creates a Resolver.
func New(fallbackIdentity string) *Resolver {
	return &Resolver{FallbackIdentity: fallbackIdentity}
}

// GrantMatches reports whether one grant applies to the viewer at the given
// instant. Expired grants never match but are not deleted here (soft expiry).
func GrantMatches(g *models.Permission, viewer *models.Viewer, now time.Time) bool {
	if g.Expired(now) {
		return false
	}
	if g.UserID != "" && g.UserID == viewer.ID {
		return true
	}
	if g.TargetType == models.TargetUser && g.TargetID == viewer.ID {
		return true
	}
	if g.TargetID != "" && viewer.MemberOf(g.TargetType, g.TargetID) {
		return true
	}
	return false
}

// Accessible reports whether at least one non-expired grant for the file
// matches the viewer.
func (r *Resolver) Accessible(fileID string, grants []models.Permission, viewer *models.Viewer) bool {
	now := time.Now()
	for i := range grants {
		g := &grants[i]
		if g.FileID != fileID {
			continue
		}
		if GrantMatches(g, viewer, now) {
			return true
		}
	}
	return false
}

// FallbackViewer returns the degraded viewer used when the identity provider
// is unreachable: the configured fallback identity with no membership sets,
// so grants resolve by direct string comparison only. Returns nil when no
// fallback is configured (fail closed).
func (r *Resolver) FallbackViewer() *models.Viewer {
	if r.FallbackIdentity == "" {
		return nil
	}
	return &models.Viewer{ID: r.FallbackIdentity, Name: r.FallbackIdentity}
}

// SharedFileIDs returns the set of file ids the viewer can reach through at
// least one active grant. Used by the shared-with-me section.
func (r *Resolver) SharedFileIDs(grants []models.Permission, viewer *models.Viewer) map[string]struct{} {
	now := time.Now()
	shared := make(map[string]struct{})
	for i := range grants {
		g := &grants[i]
		if GrantMatches(g, viewer, now) {
			shared[g.FileID] = struct{}{}
		}
	}
	return shared
}
