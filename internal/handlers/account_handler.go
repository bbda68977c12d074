package handlers

import (
	"github.com/gin-gonic/gin"

	"miniola/internal/services"
	"miniola/internal/utils"
	"miniola/internal/validators"
	"miniola/pkg/logger"
)

type AccountHandler struct {
	responder
	accountService services.AccountService
}

func NewAccountHandler(accountService services.AccountService, debug bool, logger *logger.Logger) *AccountHandler {
	return &AccountHandler{
		responder:      responder{debug: debug, logger: logger},
		accountService: accountService,
	}
}

func (h *AccountHandler) GetProfile(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	profile, err := h.accountService.Resolve(c.Request.Context(), principal)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "Profile retrieved successfully", profile)
}

func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	if err := h.accountService.DeleteAccount(c.Request.Context(), principal); err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "Account deleted successfully", nil)
}

func (h *AccountHandler) TopUpWallet(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req validators.TopUpRequest
	if !h.bind(c, &req) {
		return
	}

	balance, err := h.accountService.AddFunds(c.Request.Context(), principal, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "Wallet topped up successfully", gin.H{"wallet_balance": balance})
}
