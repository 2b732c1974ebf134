package models

import "time"

// Upload lifecycle statuses for File.UploadStatus.
const (
	UploadPending   = "pending"
	UploadUploading = "uploading"
	UploadCompleted = "completed"
	UploadError     = "error"
)

// File type categories used by the browse filters. The list is advisory:
// unknown categories are stored as-is.
const (
	TypeDocument     = "document"
	TypeImage        = "image"
	TypeVideo        = "video"
	TypeAudio        = "audio"
	TypeArchive      = "archive"
	TypeSpreadsheet  = "spreadsheet"
	TypePresentation = "presentation"
	TypeOther        = "other"
)

// File represents a user-uploaded document stored as one record in the
// datastore namespace under the key "file_<id>".
//
// Exactly one of Content/URL is authoritative at a time: small uploads carry
// their bytes inline as base64 in Content, large uploads carry a blob
// reference in URL. Metadata edits must never disturb Content, URL, Checksum,
// or UploadStatus (see store/file.Update).
type File struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Type        string `json:"type,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Size        int64  `json:"size" validate:"gte=0"`
	SizeLabel   string `json:"sizeLabel,omitempty"`
	Description string `json:"description,omitempty"`

	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`

	OwnerID string `json:"ownerId" validate:"required"`
	Starred bool   `json:"starred"`
	Shared  bool   `json:"shared"`

	// Tags is a free-text set; order carries no meaning.
	Tags []string `json:"tags,omitempty"`

	Language     string `json:"language,omitempty"`
	DocumentType string `json:"documentType,omitempty"`
	Version      string `json:"version,omitempty"`

	// ParentID is the owning folder id; empty means root.
	ParentID string `json:"parentId,omitempty"`
	// Path is informational and derived, never authoritative.
	Path string `json:"path,omitempty"`

	UploadStatus   string `json:"uploadStatus,omitempty" validate:"omitempty,oneof=pending uploading completed error"`
	UploadProgress int    `json:"uploadProgress,omitempty" validate:"gte=0,lte=100"`
	UploadErrorMsg string `json:"uploadError,omitempty"`

	// Content holds base64-encoded file bytes for inline storage.
	Content string `json:"content,omitempty"`
	// URL references the bytes in the platform blob endpoint.
	URL string `json:"url,omitempty"`
	// Checksum is a lightweight name+size+mtime hash, not a content hash.
	Checksum string `json:"checksum,omitempty"`

	Trashed   bool       `json:"trashed"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// HasTag reports whether the file carries the given tag exactly as stored.
func (f *File) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
