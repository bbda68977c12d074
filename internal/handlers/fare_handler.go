package handlers

import (
	"github.com/gin-gonic/gin"

	"miniola/internal/services"
	"miniola/internal/utils"
	"miniola/internal/validators"
	"miniola/pkg/logger"
)

type FareHandler struct {
	responder
	fareService services.FareService
}

func NewFareHandler(fareService services.FareService, debug bool, logger *logger.Logger) *FareHandler {
	return &FareHandler{
		responder:   responder{debug: debug, logger: logger},
		fareService: fareService,
	}
}

func (h *FareHandler) Estimate(c *gin.Context) {
	var req validators.FareEstimateRequest
	if !h.bind(c, &req) {
		return
	}

	estimate, err := h.fareService.Estimate(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "Fare estimated successfully", estimate)
}
