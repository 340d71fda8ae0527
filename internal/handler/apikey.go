package handler

import (
	"log/slog"
	"net/http"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/service"
)

// APIKeyHandler lets a developer issue, list and revoke their API keys.
type APIKeyHandler struct {
	keys   *service.APIKeyService
	logger *slog.Logger
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(keys *service.APIKeyService, logger *slog.Logger) *APIKeyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIKeyHandler{keys: keys, logger: logger}
}

// keyList is the listing envelope. The embedded list carries data, count,
// activeCount and maxLimit.
type keyList struct {
	Success bool `json:"success"`
	*model.APIKeyList
}

// Generate issues a new key. This response is the only time the plaintext
// secret is ever sent.
// POST /api/api-keys/generate
func (h *APIKeyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req model.CreateKeyRequest
	if err := readOptionalJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	owner := identity(r).ID
	issued, err := h.keys.Issue(r.Context(), owner, req.Name)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "API Key")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "API Key generated successfully. Save it now, you won't be able to see it again.",
		"data":    issued,
	})
}

// List returns the caller's keys, newest first, without secrets.
// GET /api/api-keys
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.keys.List(r.Context(), identity(r).ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "API Key")
		return
	}
	writeJSON(w, http.StatusOK, keyList{Success: true, APIKeyList: list})
}

// Revoke deletes one of the caller's keys.
// DELETE /api/api-keys/{keyId}
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	keyID, ok := pathID(r, "keyId")
	if !ok {
		writeError(w, http.StatusNotFound, "API Key not found")
		return
	}
	if err := h.keys.Revoke(r.Context(), identity(r).ID, keyID); err != nil {
		writeServiceError(w, r, h.logger, err, "API Key")
		return
	}
	writeMessage(w, "API Key revoked successfully")
}
