package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
	Driver() string
}

// SystemHandler serves the health probe and the OpenAPI document.
type SystemHandler struct {
	db      Pinger
	spec    []byte
	version string
	logger  *slog.Logger
}

// NewSystemHandler creates a SystemHandler. The document is serialised once
// up front.
func NewSystemHandler(db Pinger, doc *openapi3.T, version string, logger *slog.Logger) (*SystemHandler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	spec, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return &SystemHandler{db: db, spec: spec, version: version, logger: logger}, nil
}

// Health reports whether the service and its database are up. It answers
// 503 when the database does not respond within two seconds.
// GET /api/health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, dbState := http.StatusOK, "ok"
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("health check: database unreachable", "error", err)
		status, dbState = http.StatusServiceUnavailable, "unreachable"
	}
	writeJSON(w, status, map[string]interface{}{
		"success":  status == http.StatusOK,
		"status":   http.StatusText(status),
		"database": dbState,
		"driver":   h.db.Driver(),
		"version":  h.version,
	})
}

// OpenAPI serves the generated OpenAPI document.
// GET /api/openapi.json
func (h *SystemHandler) OpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(h.spec)
}

// NotFound answers requests for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Route not found")
}

// MethodNotAllowed answers requests whose path exists under another method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
