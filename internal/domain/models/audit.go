package models

import "time"

// Audit actions recorded for user-visible file operations.
const (
	ActionView     = "view"
	ActionEdit     = "edit"
	ActionDownload = "download"
	ActionShare    = "share"
	ActionDelete   = "delete"
	ActionCreate   = "create"
	ActionMove     = "move"
	ActionCopy     = "copy"
)

// AuditLogEntry is an immutable record of a file operation, stored under the
// key "audit_<id>". Entries are only ever appended; the application never
// mutates or deletes them.
type AuditLogEntry struct {
	ID     string `json:"id" validate:"required"`
	FileID string `json:"fileId"`
	// FileName is a denormalized snapshot taken at record time; it is not
	// updated when the file is later renamed.
	FileName string `json:"fileName,omitempty"`

	Action string `json:"action" validate:"required,oneof=view edit download share delete create move copy"`

	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`

	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}
