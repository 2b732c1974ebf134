// Package sharing provides the access-grant API endpoints.
//
// Endpoints (mounted at /api/sharing):
//   - GET    /files/{fileID}   - Grants referencing a file
//   - POST   /files/{fileID}   - Create a grant
//   - DELETE /grants/{grantID} - Revoke a grant
//   - GET    /org-units        - Organisation-unit directory for the share dialog
//   - GET    /users            - Cached platform users for the share dialog
//
// Only the file owner manages grants. A grant targets a single user, or a
// group, role, or organisation unit whose membership resolves at access time.
package sharing

import (
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"github.com/dalemusser/stratadrive/internal/app/store/file"
	"github.com/dalemusser/stratadrive/internal/app/store/permission"
	"github.com/dalemusser/stratadrive/internal/app/store/users"
	"github.com/dalemusser/stratadrive/internal/app/system/auditlog"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/app/system/identity"
	"github.com/dalemusser/stratadrive/internal/app/system/inputval"
	"github.com/dalemusser/stratadrive/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler handles sharing API requests.
type Handler struct {
	files       *file.Store
	permissions *permission.Store
	users       *users.Store
	identity    *identity.Client
	audit       *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a new sharing handler.
func NewHandler(files *file.Store, permissions *permission.Store, userStore *users.Store, identityClient *identity.Client, auditLogger *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		files:       files,
		permissions: permissions,
		users:       userStore,
		identity:    identityClient,
		audit:       auditLogger,
		logger:      logger,
	}
}

// Routes returns a router with the sharing endpoints.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/files/{fileID}", h.ListGrants)
	r.Post("/files/{fileID}", h.Grant)
	r.Delete("/grants/{grantID}", h.Revoke)
	r.Get("/org-units", h.OrgUnits)
	r.Get("/users", h.Users)
	return r
}

// ListGrants handles GET /api/sharing/files/{fileID}. Expired grants stay in
// the list; the UI shows them struck through until they are revoked.
func (h *Handler) ListGrants(w http.ResponseWriter, r *http.Request) {
	_, f, ok := h.loadOwnedFile(w, r)
	if !ok {
		return
	}

	grants, err := h.permissions.ListByFile(r.Context(), f.ID)
	if err != nil {
		h.logger.Error("failed to list grants", zap.Error(err))
		jsonutil.InternalError(w, "failed to load grants")
		return
	}
	if grants == nil {
		grants = []models.Permission{}
	}
	jsonutil.OK(w, grants)
}

// grantInput is the grant creation payload. Either userId or the
// targetType/targetId pair names the target.
type grantInput struct {
	UserID     string     `json:"userId"`
	TargetType string     `json:"targetType" validate:"omitempty,oneof=user group role orgUnit" label:"Target type"`
	TargetID   string     `json:"targetId"`
	Access     string     `json:"access" validate:"required,oneof=read write admin" label:"Access"`
	ExpiresAt  *time.Time `json:"expiresAt"`
}

// Grant handles POST /api/sharing/files/{fileID}.
func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	viewer, f, ok := h.loadOwnedFile(w, r)
	if !ok {
		return
	}

	var in grantInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}
	if in.UserID == "" && (in.TargetType == "" || in.TargetID == "") {
		jsonutil.BadRequest(w, "a grant needs a userId or a targetType and targetId")
		return
	}

	g, err := h.permissions.Grant(r.Context(), permission.GrantInput{
		FileID:     f.ID,
		UserID:     in.UserID,
		TargetType: in.TargetType,
		TargetID:   in.TargetID,
		Access:     in.Access,
		GrantedBy:  viewer.ID,
		ExpiresAt:  in.ExpiresAt,
	})
	if err != nil {
		h.logger.Error("failed to create grant", zap.Error(err))
		jsonutil.InternalError(w, "failed to create grant")
		return
	}

	if !f.Shared {
		shared := true
		if _, err := h.files.Update(r.Context(), f.ID, file.UpdateInput{Shared: &shared}); err != nil {
			h.logger.Warn("failed to set shared flag",
				zap.String("file_id", f.ID),
				zap.Error(err),
			)
		}
	}

	h.audit.Record(r.Context(), audit.AppendInput{
		FileID:   f.ID,
		FileName: f.Name,
		Action:   models.ActionShare,
		UserID:   viewer.ID,
		UserName: viewer.Name,
		Details:  grantDetails(g),
	})
	jsonutil.Created(w, g)
}

// Revoke handles DELETE /api/sharing/grants/{grantID}. When the last grant
// for a file goes, its shared flag clears too.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	viewer, ok := auth.CurrentViewer(r)
	if !ok {
		jsonutil.Unauthorized(w, "not signed in")
		return
	}

	grantID := chi.URLParam(r, "grantID")
	all, err := h.permissions.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list grants", zap.Error(err))
		jsonutil.InternalError(w, "failed to load grants")
		return
	}

	var target *models.Permission
	for i := range all {
		if all[i].ID == grantID {
			target = &all[i]
			break
		}
	}
	if target == nil {
		jsonutil.NotFound(w, "grant not found")
		return
	}

	f, err := h.files.GetByID(r.Context(), target.FileID)
	if err != nil && !errors.Is(err, file.ErrNotFound) {
		h.logger.Error("failed to load granted file", zap.Error(err))
		jsonutil.InternalError(w, "failed to load file")
		return
	}
	if f != nil && f.OwnerID != viewer.ID {
		jsonutil.Forbidden(w, "only the owner can manage sharing")
		return
	}

	if err := h.permissions.Revoke(r.Context(), grantID); err != nil {
		if errors.Is(err, permission.ErrNotFound) {
			jsonutil.NotFound(w, "grant not found")
			return
		}
		h.logger.Error("failed to revoke grant", zap.Error(err))
		jsonutil.InternalError(w, "failed to revoke grant")
		return
	}

	if f != nil {
		remaining, err := h.permissions.ListByFile(r.Context(), f.ID)
		if err == nil && len(remaining) == 0 {
			shared := false
			if _, err := h.files.Update(r.Context(), f.ID, file.UpdateInput{Shared: &shared}); err != nil {
				h.logger.Warn("failed to clear shared flag",
					zap.String("file_id", f.ID),
					zap.Error(err),
				)
			}
		}
		h.audit.Record(r.Context(), audit.AppendInput{
			FileID:   f.ID,
			FileName: f.Name,
			Action:   models.ActionShare,
			UserID:   viewer.ID,
			UserName: viewer.Name,
			Details:  "grant revoked",
		})
	}
	jsonutil.NoContent(w)
}

// OrgUnits handles GET /api/sharing/org-units.
func (h *Handler) OrgUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.identity.OrgUnits(r.Context())
	if err != nil {
		h.logger.Warn("failed to fetch org units", zap.Error(err))
		jsonutil.Error(w, http.StatusBadGateway, "organisation-unit directory is unavailable")
		return
	}
	if units == nil {
		units = []models.OrgUnit{}
	}
	jsonutil.OK(w, units)
}

// Users handles GET /api/sharing/users. Serves the cached copies; the cache
// fills as people sign in.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.ListCached(r.Context())
	if err != nil {
		h.logger.Error("failed to list cached users", zap.Error(err))
		jsonutil.InternalError(w, "failed to load users")
		return
	}
	if list == nil {
		list = []models.User{}
	}
	jsonutil.OK(w, list)
}

func (h *Handler) loadOwnedFile(w http.ResponseWriter, r *http.Request) (*models.Viewer, *models.File, bool) {
	viewer, ok := auth.CurrentViewer(r)
	if !ok {
		jsonutil.Unauthorized(w, "not signed in")
		return nil, nil, false
	}

	f, err := h.files.GetByID(r.Context(), chi.URLParam(r, "fileID"))
	if err != nil {
		if errors.Is(err, file.ErrNotFound) {
			jsonutil.NotFound(w, "file not found")
			return nil, nil, false
		}
		h.logger.Error("failed to load file", zap.Error(err))
		jsonutil.InternalError(w, "failed to load file")
		return nil, nil, false
	}
	if f.OwnerID != viewer.ID {
		jsonutil.Forbidden(w, "only the owner can manage sharing")
		return nil, nil, false
	}
	return viewer, f, true
}

func grantDetails(g *models.Permission) string {
	target := g.UserID
	if target == "" {
		target = g.TargetType + " " + g.TargetID
	}
	return "granted " + g.Access + " to " + target
}
