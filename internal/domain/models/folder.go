package models

import "time"

// Folder represents a directory node stored under the key "folder_<id>".
//
// A Folder's ParentID, if set, must reference an existing folder. The data
// model does not prevent cycles; creation logic only ever attaches new
// folders under an already-existing parent.
type Folder struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`

	// ParentID is the containing folder id; empty means root.
	ParentID string `json:"parentId,omitempty"`
	Path     string `json:"path,omitempty"`

	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`

	OwnerID string   `json:"ownerId" validate:"required"`
	Starred bool     `json:"starred"`
	Shared  bool     `json:"shared"`
	Tags    []string `json:"tags,omitempty"`

	Trashed   bool       `json:"trashed"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}
