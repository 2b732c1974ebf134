// Package settingsapi provides the user-preference API endpoints.
//
// Endpoints (mounted at /api/settings):
//   - GET / - Current settings (defaults when none are stored yet)
//   - PUT / - Replace the settings as a whole
//
// Settings live in one singleton record; writes replace the whole blob, so
// concurrent editors resolve last-write-wins like every datastore write.
package settingsapi

import (
	"net/http"

	"github.com/dalemusser/stratadrive/internal/app/store/settings"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/app/system/inputval"
	"github.com/dalemusser/stratadrive/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.uber.org/zap"
)

// Handler handles settings API requests.
type Handler struct {
	store  *settings.Store
	logger *zap.Logger
}

// NewHandler creates a new settingsapi handler.
func NewHandler(store *settings.Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Get handles GET /api/settings.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentViewer(r); !ok {
		jsonutil.Unauthorized(w, "not signed in")
		return
	}

	cfg, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to load settings", zap.Error(err))
		jsonutil.InternalError(w, "failed to load settings")
		return
	}
	jsonutil.OK(w, cfg)
}

// putInput mirrors models.Settings with validation on the enumerated fields.
type putInput struct {
	Theme    string         `json:"theme" validate:"required,oneof=light dark" label:"Theme"`
	Locale   string         `json:"locale" validate:"required,max=16" label:"Locale"`
	PageSize int            `json:"pageSize" validate:"required,min=1,max=500" label:"Page size"`
	ViewMode string         `json:"viewMode" validate:"required,oneof=grid list" label:"View mode"`
	Extra    map[string]any `json:"extra"`
}

// Put handles PUT /api/settings.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentViewer(r); !ok {
		jsonutil.Unauthorized(w, "not signed in")
		return
	}

	var in putInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	cfg := models.Settings{
		Theme:    in.Theme,
		Locale:   in.Locale,
		PageSize: in.PageSize,
		ViewMode: in.ViewMode,
		Extra:    in.Extra,
	}
	if err := h.store.Put(r.Context(), cfg); err != nil {
		h.logger.Error("failed to save settings", zap.Error(err))
		jsonutil.InternalError(w, "failed to save settings")
		return
	}
	jsonutil.OK(w, cfg)
}
