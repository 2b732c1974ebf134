package models

import "time"

// Access levels for a Permission grant.
const (
	AccessRead  = "read"
	AccessWrite = "write"
	AccessAdmin = "admin"
)

// Grant target types.
const (
	TargetUser    = "user"
	TargetGroup   = "group"
	TargetRole    = "role"
	TargetOrgUnit = "orgUnit"
)

// Permission is an access grant binding a file to a target identity.
//
// The target is either the legacy direct UserID field or a
// (TargetType, TargetID) pair. A grant whose ExpiresAt is in the past is
// inactive but is never deleted by resolution (soft expiry).
type Permission struct {
	ID     string `json:"id" validate:"required"`
	FileID string `json:"fileId" validate:"required"`

	// UserID is the legacy direct-user target. Newer grants use
	// TargetType/TargetID instead; either form may be present.
	UserID string `json:"userId,omitempty"`

	TargetType string `json:"targetType,omitempty" validate:"omitempty,oneof=user group role orgUnit"`
	TargetID   string `json:"targetId,omitempty"`

	Access    string    `json:"access" validate:"required,oneof=read write admin"`
	GrantedBy string    `json:"grantedBy,omitempty"`
	GrantedAt time.Time `json:"grantedAt"`

	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Expired reports whether the grant is inactive at the given instant.
func (p *Permission) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && p.ExpiresAt.Before(now)
}
