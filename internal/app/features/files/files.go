// Package files provides the file management API endpoints.
//
// Endpoints (mounted at /api/files):
//   - POST   /            - Upload one or more files (multipart)
//   - GET    /{id}        - File metadata
//   - PATCH  /{id}        - Edit metadata
//   - PUT    /{id}/content - Replace the stored content
//   - GET    /{id}/download - Download or redirect to the content
//   - POST   /{id}/star   - Set or clear the star flag
//   - POST   /{id}/trash  - Move to trash
//   - POST   /{id}/restore - Restore from trash
//   - POST   /{id}/move   - Move to another folder
//   - POST   /{id}/copy   - Copy into a folder
//   - DELETE /{id}        - Permanently delete
//
// Every mutation and download is recorded to the audit trail.
package files

import (
	"errors"
	"net/http"

	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"github.com/dalemusser/stratadrive/internal/app/store/file"
	"github.com/dalemusser/stratadrive/internal/app/store/folder"
	"github.com/dalemusser/stratadrive/internal/app/store/permission"
	"github.com/dalemusser/stratadrive/internal/app/system/auditlog"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratadrive/internal/app/system/inputval"
	"github.com/dalemusser/stratadrive/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadrive/internal/app/system/transfer"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler handles file API requests.
type Handler struct {
	files       *file.Store
	folders     *folder.Store
	permissions *permission.Store
	transfer    *transfer.Transfer
	audit       *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a new files handler.
func NewHandler(files *file.Store, folders *folder.Store, permissions *permission.Store, tr *transfer.Transfer, auditLogger *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		files:       files,
		folders:     folders,
		permissions: permissions,
		transfer:    tr,
		audit:       auditLogger,
		logger:      logger,
	}
}

// Routes returns a router with the file endpoints.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.Upload)
	r.Route("/{id}", func(sr chi.Router) {
		sr.Get("/", h.Get)
		sr.Patch("/", h.Edit)
		sr.Delete("/", h.Delete)
		sr.Put("/content", h.ReplaceContent)
		sr.Get("/download", h.Download)
		sr.Post("/star", h.Star)
		sr.Post("/trash", h.Trash)
		sr.Post("/restore", h.Restore)
		sr.Post("/move", h.Move)
		sr.Post("/copy", h.Copy)
	})
	return r
}

// Get handles GET /api/files/{id}. Inline content is omitted from the
// metadata payload; the download endpoint serves it.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	viewer, f, ok := h.loadForRead(w, r)
	if !ok {
		return
	}

	h.audit.Record(r.Context(), audit.AppendInput{
		FileID:   f.ID,
		FileName: f.Name,
		Action:   models.ActionView,
		UserID:   viewer.ID,
		UserName: viewer.Name,
	})
	jsonutil.OK(w, withoutContent(f))
}

// editInput is the metadata PATCH payload. Absent fields are untouched.
type editInput struct {
	Name         *string   `json:"name" label:"Name"`
	Description  *string   `json:"description" label:"Description"`
	Tags         *[]string `json:"tags"`
	Language     *string   `json:"language"`
	DocumentType *string   `json:"documentType"`
	Version      *string   `json:"version"`
}

// editCheck carries the dereferenced values through validation.
type editCheck struct {
	Name string `validate:"omitempty,entryname,max=255" label:"Name"`
}

// Edit handles PATCH /api/files/{id}.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	viewer, f, ok := h.loadForWrite(w, r)
	if !ok {
		return
	}

	var in editInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}

	check := editCheck{}
	if in.Name != nil {
		check.Name = *in.Name
	}
	if res := inputval.Validate(&check); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	if in.Name != nil && *in.Name != f.Name {
		exists, err := h.files.NameExistsInFolder(r.Context(), *in.Name, f.ParentID, f.ID)
		if err != nil {
			h.logger.Error("failed duplicate-name check", zap.Error(err))
			jsonutil.InternalError(w, "failed to check for duplicate names")
			return
		}
		if exists {
			jsonutil.Conflict(w, "a file with that name already exists in this folder")
			return
		}
	}

	update := file.UpdateInput{
		Name:         sanitizedName(in.Name),
		Tags:         sanitizedTags(in.Tags),
		Language:     in.Language,
		DocumentType: in.DocumentType,
		Version:      in.Version,
	}
	if in.Description != nil {
		desc := htmlsanitize.Sanitize(*in.Description)
		update.Description = &desc
	}

	updated, err := h.files.Update(r.Context(), f.ID, update)
	if err != nil {
		h.fileError(w, err, "failed to update file")
		return
	}

	h.audit.Record(r.Context(), audit.AppendInput{
		FileID:   updated.ID,
		FileName: updated.Name,
		Action:   models.ActionEdit,
		UserID:   viewer.ID,
		UserName: viewer.Name,
	})
	jsonutil.OK(w, withoutContent(updated))
}

// Star handles POST /api/files/{id}/star.
//
// Request body:
//
//	{ "starred": true }
func (h *Handler) Star(w http.ResponseWriter, r *http.Request) {
	viewer, f, ok := h.loadForWrite(w, r)
	if !ok {
		return
	}

	var in struct {
		Starred bool `json:"starred"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}

	updated, err := h.files.Update(r.Context(), f.ID, file.UpdateInput{Starred: &in.Starred})
	if err != nil {
		h.fileError(w, err, "failed to update file")
		return
	}

	h.audit.Record(r.Context(), audit.AppendInput{
		FileID:   updated.ID,
		FileName: updated.Name,
		Action:   models.ActionEdit,
		UserID:   viewer.ID,
		UserName: viewer.Name,
		Details:  starDetails(in.Starred),
	})
	jsonutil.OK(w, withoutContent(updated))
}

// Trash handles POST /api/files/{id}/trash. Trashing an already-trashed file
// refreshes its deletion timestamp.
func (h *Handler) Trash(w http.ResponseWriter, r *http.Request) {
	viewer, f, ok := h.loadForWrite(w, r)
	if !ok {
		return
	}

	updated, err := h.files.Trash(r.Context(), f.ID)
	if err != nil {
		h.fileError(w, err, "failed to trash file")
		return
	}

	h.audit.Record(r.Context(), audit.AppendInput{
		FileID:   updated.ID,
		FileName: updated.Name,
		Action:   models.ActionDelete,
		UserID:   viewer.ID,
		UserName: viewer.Name,
		Details:  "moved to trash",
	})
	jsonutil.OK(w, withoutContent(updated))
}

// Restore handles POST /api/files/{id}/restore.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	viewer, f, ok := h.loadForWrite(w, r)
	if !ok {
		return
	}

	updated, err := h.files.Restore(r.Context(), f.ID)
	if err != nil {
		h.fileError(w, err, "failed to restore file")
		return
	}

	h.audit.Record(r.Context(), audit.AppendInput{
		FileID:   updated.ID,
		FileName: updated.Name,
		Action:   models.ActionEdit,
		UserID:   viewer.ID,
		UserName: viewer.Name,
		Details:  "restored from trash",
	})
	jsonutil.OK(w, withoutContent(updated))
}

// Delete handles DELETE /api/files/{id}. This is the permanent empty-trash
// path; the primary delete flow only trashes. Grants referencing the file are
// revoked alongside the record.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	viewer, f, ok := h.loadForWrite(w, r)
	if !ok {
		return
	}

	if err := h.files.Delete(r.Context(), f.ID); err != nil {
		h.fileError(w, err, "failed to delete file")
		return
	}

	grants, err := h.permissions.ListByFile(r.Context(), f.ID)
	if err != nil {
		h.logger.Warn("failed to list grants for deleted file",
			zap.String("file_id", f.ID),
			zap.Error(err),
		)
	}
	for _, g := range grants {
		if err := h.permissions.Revoke(r.Context(), g.ID); err != nil && !errors.Is(err, permission.ErrNotFound) {
			h.logger.Warn("failed to revoke grant for deleted file",
				zap.String("grant_id", g.ID),
				zap.Error(err),
			)
		}
	}

	h.audit.Record(r.Context(), audit.AppendInput{
		FileID:   f.ID,
		FileName: f.Name,
		Action:   models.ActionDelete,
		UserID:   viewer.ID,
		UserName: viewer.Name,
		Details:  "permanently deleted",
	})
	jsonutil.NoContent(w)
}

// Move handles POST /api/files/{id}/move.
//
// Request body:
//
//	{ "parentId": "..." }  // empty means root
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	viewer, f, ok := h.loadForWrite(w, r)
	if !ok {
		return
	}

	var in struct {
		ParentID string `json:"parentId"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}

	path, ok := h.resolveParentPath(w, r, in.ParentID)
	if !ok {
		return
	}

	exists, err := h.files.NameExistsInFolder(r.Context(), f.Name, in.ParentID, f.ID)
	if err != nil {
		h.logger.Error("failed duplicate-name check", zap.Error(err))
		jsonutil.InternalError(w, "failed to check for duplicate names")
		return
	}
	if exists {
		jsonutil.Conflict(w, "a file with that name already exists in the destination")
		return
	}

	updated, err := h.files.Update(r.Context(), f.ID, file.UpdateInput{ParentID: &in.ParentID, Path: &path})
	if err != nil {
		h.fileError(w, err, "failed to move file")
		return
	}

	h.audit.Record(r.Context(), audit.AppendInput{
		FileID:   updated.ID,
		FileName: updated.Name,
		Action:   models.ActionMove,
		UserID:   viewer.ID,
		UserName: viewer.Name,
		Details:  "moved to " + displayPath(path),
	})
	jsonutil.OK(w, withoutContent(updated))
}

// Copy handles POST /api/files/{id}/copy. The copy is owned by the viewer.
// When the name collides in the destination the copy is prefixed "Copy of".
func (h *Handler) Copy(w http.ResponseWriter, r *http.Request) {
	viewer, f, ok := h.loadForRead(w, r)
	if !ok {
		return
	}

	var in struct {
		ParentID string `json:"parentId"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}

	path, ok := h.resolveParentPath(w, r, in.ParentID)
	if !ok {
		return
	}

	name := f.Name
	exists, err := h.files.NameExistsInFolder(r.Context(), name, in.ParentID, "")
	if err != nil {
		h.logger.Error("failed duplicate-name check", zap.Error(err))
		jsonutil.InternalError(w, "failed to check for duplicate names")
		return
	}
	if exists {
		name = "Copy of " + name
	}

	created, err := h.files.Create(r.Context(), file.CreateInput{
		Name:         name,
		Type:         f.Type,
		MimeType:     f.MimeType,
		Size:         f.Size,
		Description:  f.Description,
		OwnerID:      viewer.ID,
		ParentID:     in.ParentID,
		Path:         path,
		Tags:         f.Tags,
		Language:     f.Language,
		DocumentType: f.DocumentType,
		Version:      f.Version,
		Content:      f.Content,
		URL:          f.URL,
		Checksum:     f.Checksum,
		UploadStatus: f.UploadStatus,
	})
	if err != nil {
		h.fileError(w, err, "failed to copy file")
		return
	}

	h.audit.Record(r.Context(), audit.AppendInput{
		FileID:   created.ID,
		FileName: created.Name,
		Action:   models.ActionCopy,
		UserID:   viewer.ID,
		UserName: viewer.Name,
		Details:  "copied from " + f.Name,
	})
	jsonutil.Created(w, withoutContent(created))
}

// loadForRead fetches the file and checks the viewer can see it: the owner,
// or anyone holding an active grant.
func (h *Handler) loadForRead(w http.ResponseWriter, r *http.Request) (*models.Viewer, *models.File, bool) {
	return h.load(w, r, false)
}

// loadForWrite fetches the file and checks the viewer can change it: the
// owner, or a grant at write or admin access.
func (h *Handler) loadForWrite(w http.ResponseWriter, r *http.Request) (*models.Viewer, *models.File, bool) {
	return h.load(w, r, true)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request, write bool) (*models.Viewer, *models.File, bool) {
	viewer, ok := auth.CurrentViewer(r)
	if !ok {
		jsonutil.Unauthorized(w, "not signed in")
		return nil, nil, false
	}

	f, err := h.files.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fileError(w, err, "failed to load file")
		return nil, nil, false
	}

	if f.OwnerID != viewer.ID {
		grants, err := h.permissions.ListByFile(r.Context(), f.ID)
		if err != nil {
			h.logger.Error("failed to list grants", zap.Error(err))
			jsonutil.InternalError(w, "failed to resolve access")
			return nil, nil, false
		}
		if !hasAccess(f.ID, grants, viewer, write) {
			jsonutil.Forbidden(w, "you do not have access to this file")
			return nil, nil, false
		}
	}
	return viewer, f, true
}

// fileError maps store errors to API responses.
func (h *Handler) fileError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, file.ErrNotFound) {
		jsonutil.NotFound(w, "file not found")
		return
	}
	h.logger.Error(msg, zap.Error(err))
	jsonutil.InternalError(w, msg)
}

// resolveParentPath validates the destination folder and returns its path.
// The root destination (empty id) is always valid.
func (h *Handler) resolveParentPath(w http.ResponseWriter, r *http.Request, parentID string) (string, bool) {
	if parentID == "" {
		return "", true
	}
	parent, err := h.folders.GetByID(r.Context(), parentID)
	if err != nil {
		if errors.Is(err, folder.ErrNotFound) {
			jsonutil.BadRequest(w, "destination folder not found")
			return "", false
		}
		h.logger.Error("failed to load destination folder", zap.Error(err))
		jsonutil.InternalError(w, "failed to load destination folder")
		return "", false
	}
	if parent.Trashed {
		jsonutil.BadRequest(w, "destination folder is in the trash")
		return "", false
	}
	return parent.Path, true
}

func starDetails(starred bool) string {
	if starred {
		return "starred"
	}
	return "unstarred"
}

func displayPath(path string) string {
	if path == "" {
		return "My Drive"
	}
	return path
}
