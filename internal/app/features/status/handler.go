// internal/app/features/status/handler.go
package status

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/store/keyvalue"
	"github.com/dalemusser/stratadrive/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

var startTime = time.Now()

// Handler holds dependencies for the status endpoint.
type Handler struct {
	kv        *keyvalue.Client
	namespace string
	logger    *zap.Logger
}

// NewHandler creates a new status Handler.
func NewHandler(kv *keyvalue.Client, namespace string, logger *zap.Logger) *Handler {
	return &Handler{kv: kv, namespace: namespace, logger: logger}
}

// response is the status payload.
type response struct {
	Status       string `json:"status"`
	GoVersion    string `json:"goVersion"`
	Uptime       string `json:"uptime"`
	NumGoroutine int    `json:"numGoroutine"`

	DatastoreConnected bool   `json:"datastoreConnected"`
	DatastorePingMS    int64  `json:"datastorePingMs"`
	DatastoreError     string `json:"datastoreError,omitempty"`
	NamespaceKeys      int    `json:"namespaceKeys"`
}

// Serve handles GET /api/status.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	resp := response{
		Status:       "ok",
		GoVersion:    runtime.Version(),
		Uptime:       formatDuration(time.Since(startTime)),
		NumGoroutine: runtime.NumGoroutine(),
	}

	pingStart := time.Now()
	keys, err := h.kv.ListKeys(ctx, h.namespace)
	if err != nil {
		resp.Status = "degraded"
		resp.DatastoreError = err.Error()
		h.logger.Warn("status: datastore listing failed", zap.Error(err))
	} else {
		resp.DatastoreConnected = true
		resp.DatastorePingMS = time.Since(pingStart).Milliseconds()
		resp.NamespaceKeys = len(keys)
	}

	jsonutil.OK(w, resp)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return plural(days, "day") + " " + plural(hours, "hour")
	}
	if hours > 0 {
		return plural(hours, "hour") + " " + plural(minutes, "min")
	}
	return plural(minutes, "min")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return itoa(n) + " " + unit + "s"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
