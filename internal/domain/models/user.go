package models

// User is a platform identity, read-mostly. The authoritative source is the
// platform identity endpoint; a copy may be cached in the datastore under
// "user_<id>" for when the identity provider is unreachable.
type User struct {
	ID          string   `json:"id" validate:"required"`
	Name        string   `json:"name"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	Avatar      string   `json:"avatar,omitempty"`
}

// Viewer is the resolved identity of the current user plus the membership
// sets the permission resolver matches grants against.
type Viewer struct {
	ID       string
	Name     string
	Groups   map[string]struct{}
	Roles    map[string]struct{}
	OrgUnits map[string]struct{}
}

// MemberOf reports whether the viewer belongs to the given target.
func (v *Viewer) MemberOf(targetType, targetID string) bool {
	switch targetType {
	case TargetGroup:
		_, ok := v.Groups[targetID]
		return ok
	case TargetRole:
		_, ok := v.Roles[targetID]
		return ok
	case TargetOrgUnit:
		_, ok := v.OrgUnits[targetID]
		return ok
	}
	return false
}

// OrgUnit is one entry of the platform organisation-unit directory, used by
// the sharing UI to pick org-unit grant targets.
type OrgUnit struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name"`
	Level    int    `json:"level,omitempty"`
	ParentID string `json:"parentId,omitempty"`
}
