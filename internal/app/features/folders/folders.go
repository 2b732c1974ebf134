// Package folders provides the folder management API endpoints.
//
// Endpoints (mounted at /api/folders):
//   - POST   /                 - Create a folder
//   - GET    /{id}             - Folder metadata
//   - PATCH  /{id}             - Edit metadata (rename, describe, tag)
//   - POST   /{id}/trash       - Move to trash
//   - POST   /{id}/restore     - Restore from trash
//   - DELETE /{id}             - Permanently delete
//   - GET    /{id}/descendants - Every non-trashed file anywhere under the folder
package folders

import (
	"errors"
	"net/http"

	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"github.com/dalemusser/stratadrive/internal/app/store/file"
	"github.com/dalemusser/stratadrive/internal/app/store/folder"
	"github.com/dalemusser/stratadrive/internal/app/system/auditlog"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/app/system/drive"
	"github.com/dalemusser/stratadrive/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratadrive/internal/app/system/inputval"
	"github.com/dalemusser/stratadrive/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler handles folder API requests.
type Handler struct {
	folders *folder.Store
	files   *file.Store
	audit   *auditlog.Logger
	logger  *zap.Logger
}

// NewHandler creates a new folders handler.
func NewHandler(folders *folder.Store, files *file.Store, auditLogger *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		folders: folders,
		files:   files,
		audit:   auditLogger,
		logger:  logger,
	}
}

// Routes returns a router with the folder endpoints.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Route("/{id}", func(sr chi.Router) {
		sr.Get("/", h.Get)
		sr.Patch("/", h.Edit)
		sr.Delete("/", h.Delete)
		sr.Post("/trash", h.Trash)
		sr.Post("/restore", h.Restore)
		sr.Get("/descendants", h.Descendants)
	})
	return r
}

// createInput is the folder creation payload.
type createInput struct {
	Name        string   `json:"name" validate:"required,entryname,max=255" label:"Name"`
	Description string   `json:"description"`
	ParentID    string   `json:"parentId"`
	Tags        []string `json:"tags"`
}

// Create handles POST /api/folders.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	viewer, ok := auth.CurrentViewer(r)
	if !ok {
		jsonutil.Unauthorized(w, "not signed in")
		return
	}

	var in createInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	in.Name = htmlsanitize.PlainText(in.Name)
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	exists, err := h.folders.NameExistsInParent(r.Context(), in.Name, in.ParentID, "")
	if err != nil {
		h.logger.Error("failed duplicate-name check", zap.Error(err))
		jsonutil.InternalError(w, "failed to check for duplicate names")
		return
	}
	if exists {
		jsonutil.Conflict(w, "a folder with that name already exists here")
		return
	}

	created, err := h.folders.Create(r.Context(), folder.CreateInput{
		Name:        in.Name,
		Description: htmlsanitize.Sanitize(in.Description),
		ParentID:    in.ParentID,
		OwnerID:     viewer.ID,
		Tags:        htmlsanitize.PlainTextAll(in.Tags),
	})
	if err != nil {
		if errors.Is(err, folder.ErrParentNotFound) {
			jsonutil.BadRequest(w, "parent folder not found")
			return
		}
		h.logger.Error("failed to create folder", zap.Error(err))
		jsonutil.InternalError(w, "failed to create folder")
		return
	}

	h.audit.Record(r.Context(), audit.AppendInput{
		FileID:   created.ID,
		FileName: created.Name,
		Action:   models.ActionCreate,
		UserID:   viewer.ID,
		UserName: viewer.Name,
		Details:  "folder created",
	})
	jsonutil.Created(w, created)
}

// Get handles GET /api/folders/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	_, f, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	jsonutil.OK(w, f)
}

// editInput is the folder PATCH payload. Absent fields are untouched.
type editInput struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
	Starred     *bool     `json:"starred"`
}

// Edit handles PATCH /api/folders/{id}.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	viewer, f, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	var in editInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}

	update := folder.UpdateInput{Starred: in.Starred}
	if in.Name != nil {
		name := htmlsanitize.PlainText(*in.Name)
		if !inputval.IsValidEntryName(name) {
			jsonutil.BadRequest(w, "Name must not be blank or contain path separators")
			return
		}
		if name != f.Name {
			exists, err := h.folders.NameExistsInParent(r.Context(), name, f.ParentID, f.ID)
			if err != nil {
				h.logger.Error("failed duplicate-name check", zap.Error(err))
				jsonutil.InternalError(w, "failed to check for duplicate names")
				return
			}
			if exists {
				jsonutil.Conflict(w, "a folder with that name already exists here")
				return
			}
		}
		update.Name = &name
	}
	if in.Description != nil {
		desc := htmlsanitize.Sanitize(*in.Description)
		update.Description = &desc
	}
	if in.Tags != nil {
		tags := htmlsanitize.PlainTextAll(*in.Tags)
		if tags == nil {
			tags = []string{}
		}
		update.Tags = &tags
	}

	updated, err := h.folders.Update(r.Context(), f.ID, update)
	if err != nil {
		h.folderError(w, err, "failed to update folder")
		return
	}

	h.audit.Record(r.Context(), audit.AppendInput{
		FileID:   updated.ID,
		FileName: updated.Name,
		Action:   models.ActionEdit,
		UserID:   viewer.ID,
		UserName: viewer.Name,
		Details:  "folder updated",
	})
	jsonutil.OK(w, updated)
}

// Trash handles POST /api/folders/{id}/trash. The folder's contents keep
// their own trash flags; a trashed folder simply stops appearing in my-drive.
func (h *Handler) Trash(w http.ResponseWriter, r *http.Request) {
	viewer, f, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	updated, err := h.folders.Trash(r.Context(), f.ID)
	if err != nil {
		h.folderError(w, err, "failed to trash folder")
		return
	}

	h.audit.Record(r.Context(), audit.AppendInput{
		FileID:   updated.ID,
		FileName: updated.Name,
		Action:   models.ActionDelete,
		UserID:   viewer.ID,
		UserName: viewer.Name,
		Details:  "folder moved to trash",
	})
	jsonutil.OK(w, updated)
}

// Restore handles POST /api/folders/{id}/restore.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	viewer, f, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	updated, err := h.folders.Restore(r.Context(), f.ID)
	if err != nil {
		h.folderError(w, err, "failed to restore folder")
		return
	}

	h.audit.Record(r.Context(), audit.AppendInput{
		FileID:   updated.ID,
		FileName: updated.Name,
		Action:   models.ActionEdit,
		UserID:   viewer.ID,
		UserName: viewer.Name,
		Details:  "folder restored from trash",
	})
	jsonutil.OK(w, updated)
}

// Delete handles DELETE /api/folders/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	viewer, f, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	if err := h.folders.Delete(r.Context(), f.ID); err != nil {
		h.folderError(w, err, "failed to delete folder")
		return
	}

	h.audit.Record(r.Context(), audit.AppendInput{
		FileID:   f.ID,
		FileName: f.Name,
		Action:   models.ActionDelete,
		UserID:   viewer.ID,
		UserName: viewer.Name,
		Details:  "folder permanently deleted",
	})
	jsonutil.NoContent(w)
}

// Descendants handles GET /api/folders/{id}/descendants: every non-trashed
// file under the folder, however deep. Folders are traversed, not returned.
func (h *Handler) Descendants(w http.ResponseWriter, r *http.Request) {
	_, f, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	files, err := h.files.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list files", zap.Error(err))
		jsonutil.InternalError(w, "failed to load files")
		return
	}
	folders, err := h.folders.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list folders", zap.Error(err))
		jsonutil.InternalError(w, "failed to load folders")
		return
	}

	collected := drive.Descendants(files, folders, f.ID)
	if collected == nil {
		collected = []models.File{}
	}
	for i := range collected {
		collected[i].Content = ""
	}
	jsonutil.OK(w, collected)
}

// loadOwned fetches the folder and checks the viewer owns it. Folders are
// not shareable; only files carry grants.
func (h *Handler) loadOwned(w http.ResponseWriter, r *http.Request) (*models.Viewer, *models.Folder, bool) {
	viewer, ok := auth.CurrentViewer(r)
	if !ok {
		jsonutil.Unauthorized(w, "not signed in")
		return nil, nil, false
	}

	f, err := h.folders.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.folderError(w, err, "failed to load folder")
		return nil, nil, false
	}
	if f.OwnerID != viewer.ID {
		jsonutil.Forbidden(w, "you do not have access to this folder")
		return nil, nil, false
	}
	return viewer, f, true
}

func (h *Handler) folderError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, folder.ErrNotFound) {
		jsonutil.NotFound(w, "folder not found")
		return
	}
	h.logger.Error(msg, zap.Error(err))
	jsonutil.InternalError(w, msg)
}
