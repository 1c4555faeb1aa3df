package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"weddingrsvp/internal/security"
	"weddingrsvp/internal/service"
)

// AuthHandler issues admin bearer tokens
type AuthHandler struct {
	auth   *service.AdminAuthService
	logger *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *service.AdminAuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login handles POST /admin/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		badRequest(w, h.logger, err)
		return
	}

	token, expiresAt, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		h.logger.Warn("admin login failed",
			zap.String("username", req.Username),
			zap.String("ip", security.GetClientIP(r)),
		)
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("admin logged in", zap.String("username", req.Username))
	WriteJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}
