package handler

import (
	"log/slog"
	"net/http"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/service"
)

// AuthHandler serves administrator and developer login, registration and
// profile endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	keys   *service.APIKeyService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, keys *service.APIKeyService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{auth: auth, keys: keys, logger: logger}
}

// adminSession is the response to a successful admin login.
type adminSession struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	Admin   *model.Admin `json:"admin"`
}

// userSession is the response to developer login and registration.
type userSession struct {
	Success bool             `json:"success"`
	Token   string           `json:"token"`
	User    *model.Developer `json:"user"`
}

// AdminLogin authenticates an administrator.
// POST /api/auth/login
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := readJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Please provide email and password")
		return
	}

	token, admin, err := h.auth.LoginAdmin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Admin")
		return
	}
	writeJSON(w, http.StatusOK, adminSession{Success: true, Token: token, Admin: admin})
}

// AdminMe returns the authenticated administrator.
// GET /api/auth/me
func (h *AuthHandler) AdminMe(w http.ResponseWriter, r *http.Request) {
	admin, err := h.auth.GetAdmin(r.Context(), identity(r).ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Admin")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"admin":   admin,
	})
}

// Register creates a developer account and logs it in.
// POST /api/users/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := readJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	dev := &model.Developer{
		Name:    req.Name,
		Email:   req.Email,
		Company: req.Company,
		Website: req.Website,
	}
	token, err := h.auth.RegisterDeveloper(r.Context(), dev, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "User")
		return
	}
	writeJSON(w, http.StatusCreated, userSession{Success: true, Token: token, User: dev})
}

// UserLogin authenticates a developer.
// POST /api/users/login
func (h *AuthHandler) UserLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := readJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	token, dev, err := h.auth.LoginDeveloper(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, userSession{Success: true, Token: token, User: dev})
}

// developerWithKeys is the developer profile plus redacted key metadata.
type developerWithKeys struct {
	*model.Developer
	APIKeys []model.APIKey `json:"apiKeys"`
}

// UserMe returns the authenticated developer and their keys, without secrets.
// GET /api/users/me
func (h *AuthHandler) UserMe(w http.ResponseWriter, r *http.Request) {
	id := identity(r).ID
	dev, err := h.auth.GetDeveloper(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "User")
		return
	}
	keys, err := h.keys.List(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    developerWithKeys{Developer: dev, APIKeys: keys.Keys},
	})
}

// UpdateProfile edits the developer's name, company and website.
// PUT /api/users/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req model.DeveloperProfile
	if err := readJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	dev, err := h.auth.UpdateProfile(r.Context(), identity(r).ID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    dev,
	})
}
