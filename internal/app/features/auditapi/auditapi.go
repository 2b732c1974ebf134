// Package auditapi provides the audit trail query endpoint.
//
// Endpoints (mounted at /api/audit):
//   - GET / - List audit entries, newest first, with optional filters
package auditapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// defaultLimit caps unbounded queries; the trail only grows.
const defaultLimit = 200

// Handler handles audit query requests.
type Handler struct {
	store  *audit.Store
	logger *zap.Logger
}

// NewHandler creates a new audit query handler.
func NewHandler(store *audit.Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Routes returns a router with the audit endpoints.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.List)
	return r
}

// List handles GET /api/audit.
//
// Query parameters (all optional):
//
//	fileId - entries for one file
//	userId - entries by one user
//	action - one of view, edit, download, share, delete, create, move, copy
//	start  - RFC 3339 lower bound
//	end    - RFC 3339 upper bound
//	limit  - maximum entries (default 200)
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentViewer(r); !ok {
		jsonutil.Unauthorized(w, "not signed in")
		return
	}

	q := r.URL.Query()
	filter := audit.QueryFilter{
		FileID: q.Get("fileId"),
		UserID: q.Get("userId"),
		Action: q.Get("action"),
		Limit:  defaultLimit,
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonutil.BadRequest(w, "invalid limit parameter")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			jsonutil.BadRequest(w, "invalid start parameter")
			return
		}
		filter.StartTime = &t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			jsonutil.BadRequest(w, "invalid end parameter")
			return
		}
		filter.EndTime = &t
	}

	entries, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list audit entries", zap.Error(err))
		jsonutil.InternalError(w, "failed to load audit entries")
		return
	}
	if entries == nil {
		entries = []models.AuditLogEntry{}
	}
	jsonutil.OK(w, entries)
}
