package handlers

import (
	"github.com/gin-gonic/gin"

	"miniola/internal/services"
	"miniola/internal/utils"
	"miniola/internal/validators"
	"miniola/pkg/logger"
)

type DriverHandler struct {
	responder
	driverService services.DriverService
}

func NewDriverHandler(driverService services.DriverService, debug bool, logger *logger.Logger) *DriverHandler {
	return &DriverHandler{
		responder:     responder{debug: debug, logger: logger},
		driverService: driverService,
	}
}

func (h *DriverHandler) ToggleAvailability(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	driver, err := h.driverService.ToggleAvailability(c.Request.Context(), principal.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "Availability updated", gin.H{"is_available": driver.IsAvailable})
}

func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req validators.UpdateLocationRequest
	if !h.bind(c, &req) {
		return
	}

	driver, err := h.driverService.UpdateLocation(c.Request.Context(), principal.ID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "Location updated", gin.H{
		"location":             driver.Location,
		"address":              driver.Address,
		"last_location_update": driver.LastLocationUpdate,
	})
}

// ReviewKYC is the back-office KYC decision for a driver.
func (h *DriverHandler) ReviewKYC(c *gin.Context) {
	driverID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req validators.KYCReviewRequest
	if !h.bind(c, &req) {
		return
	}

	driver, err := h.driverService.UpdateKYCStatus(c.Request.Context(), driverID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "KYC status updated", driver)
}
