// Package browse provides the section listing API: the five drive sections
// assembled from the flat file and folder collections, with optional filter
// predicates applied server-side.
//
// Endpoints:
//   - GET  /api/browse/{section} - List a section's files (and folders for my-drive)
//   - POST /api/browse/trail     - Truncate the breadcrumb trail to a clicked frame
package browse

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/store/file"
	"github.com/dalemusser/stratadrive/internal/app/store/folder"
	"github.com/dalemusser/stratadrive/internal/app/store/permission"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/app/system/authz"
	"github.com/dalemusser/stratadrive/internal/app/system/drive"
	"github.com/dalemusser/stratadrive/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler handles browse API requests.
type Handler struct {
	files       *file.Store
	folders     *folder.Store
	permissions *permission.Store
	resolver    *authz.Resolver
	logger      *zap.Logger
}

// NewHandler creates a new browse handler.
func NewHandler(files *file.Store, folders *folder.Store, permissions *permission.Store, resolver *authz.Resolver, logger *zap.Logger) *Handler {
	return &Handler{
		files:       files,
		folders:     folders,
		permissions: permissions,
		resolver:    resolver,
		logger:      logger,
	}
}

// Routes returns a router with the browse endpoints.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/{section}", h.Section)
	r.Post("/trail", h.Trail)
	return r
}

// sectionResponse is the section listing payload.
type sectionResponse struct {
	Section     string          `json:"section"`
	FolderID    string          `json:"folderId,omitempty"`
	Files       []models.File   `json:"files"`
	Folders     []models.Folder `json:"folders"`
	ChildCounts map[string]int  `json:"childCounts"`
}

// Section handles GET /api/browse/{section}.
//
// Query parameters (all optional, combined by AND):
//
//	folder         - scope my-drive to one folder id (empty means root)
//	q              - case-insensitive substring over name, description, tags
//	types          - comma-separated file type categories
//	tags           - comma-separated tags (any match)
//	owners         - comma-separated owner ids
//	starred        - "true"/"false"
//	shared         - "true"/"false"
//	modifiedAfter  - RFC 3339 timestamp
//	modifiedBefore - RFC 3339 timestamp
func (h *Handler) Section(w http.ResponseWriter, r *http.Request) {
	viewer, ok := auth.CurrentViewer(r)
	if !ok {
		jsonutil.Unauthorized(w, "not signed in")
		return
	}

	section := drive.Section(chi.URLParam(r, "section"))
	if !drive.ValidSection(section) {
		jsonutil.BadRequest(w, "unknown section")
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		jsonutil.BadRequest(w, err.Error())
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

	var sharedIDs map[string]struct{}
	if section == drive.SectionShared {
		grants, err := h.permissions.ListAll(r.Context())
		if err != nil {
			h.logger.Error("failed to list grants", zap.Error(err))
			jsonutil.InternalError(w, "failed to resolve shared files")
			return
		}
		sharedIDs = h.resolver.SharedFileIDs(grants, viewer)
	}

	view := drive.Build(files, folders, drive.Params{
		Section:   section,
		FolderID:  r.URL.Query().Get("folder"),
		ViewerID:  viewer.ID,
		SharedIDs: sharedIDs,
		Filter:    *filter,
	})

	resp := sectionResponse{
		Section:     string(section),
		FolderID:    r.URL.Query().Get("folder"),
		Files:       view.Files,
		Folders:     view.Folders,
		ChildCounts: view.ChildCounts,
	}
	if resp.Files == nil {
		resp.Files = []models.File{}
	}
	if resp.Folders == nil {
		resp.Folders = []models.Folder{}
	}
	jsonutil.OK(w, resp)
}

// Trail handles POST /api/browse/trail.
//
// Request body:
//
//	{ "trail": [{"id": "...", "name": "..."}], "clickedId": "..." }
//
// Response (200 OK):
//
//	{ "trail": [...], "folderId": "..." }
//
// An empty clickedId means the root frame: the trail clears and the folder
// resets to root.
func (h *Handler) Trail(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Trail     []drive.Breadcrumb `json:"trail"`
		ClickedID string             `json:"clickedId"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}

	trail, folderID := drive.TruncateTrail(in.Trail, in.ClickedID)
	if trail == nil {
		trail = []drive.Breadcrumb{}
	}
	jsonutil.OK(w, map[string]any{"trail": trail, "folderId": folderID})
}

// parseFilter builds the filter predicates from the query string.
func parseFilter(r *http.Request) (*drive.Filter, error) {
	q := r.URL.Query()
	f := &drive.Filter{
		Query:  q.Get("q"),
		Types:  splitList(q.Get("types")),
		Tags:   splitList(q.Get("tags")),
		Owners: splitList(q.Get("owners")),
	}

	for name, dst := range map[string]**bool{"starred": &f.Starred, "shared": &f.Shared} {
		if v := q.Get(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, errBadParam(name)
			}
			*dst = &b
		}
	}
	for name, dst := range map[string]**time.Time{"modifiedAfter": &f.ModifiedAfter, "modifiedBefore": &f.ModifiedBefore} {
		if v := q.Get(name); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return nil, errBadParam(name)
			}
			*dst = &t
		}
	}
	return f, nil
}

type paramError string

func (e paramError) Error() string { return "invalid " + string(e) + " parameter" }

func errBadParam(name string) error { return paramError(name) }

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
