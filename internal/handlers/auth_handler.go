package handlers

import (
	"github.com/gin-gonic/gin"

	"miniola/internal/services"
	"miniola/internal/utils"
	"miniola/internal/validators"
	"miniola/pkg/logger"
)

type AuthHandler struct {
	responder
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService, debug bool, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		responder:   responder{debug: debug, logger: logger},
		authService: authService,
	}
}

func (h *AuthHandler) RegisterRider(c *gin.Context) {
	var req validators.RegisterRiderRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.authService.RegisterRider(c.Request.Context(), &req, clientMeta(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.CreatedResponse(c, "Rider registered successfully", result)
}

func (h *AuthHandler) RegisterDriver(c *gin.Context) {
	var req validators.RegisterDriverRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.authService.RegisterDriver(c.Request.Context(), &req, clientMeta(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.CreatedResponse(c, "Driver registered successfully", result)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req validators.LoginRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req, clientMeta(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "Login successful", result)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req validators.RefreshTokenRequest
	if !h.bind(c, &req) {
		return
	}

	tokens, err := h.authService.Refresh(c.Request.Context(), &req, clientMeta(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "Token refreshed successfully", tokens)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req validators.RefreshTokenRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.authService.Logout(c.Request.Context(), &req); err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "Logged out successfully", nil)
}
