package handlers

import (
	"github.com/gin-gonic/gin"

	"miniola/internal/services"
	"miniola/internal/utils"
	"miniola/internal/validators"
	"miniola/pkg/logger"
)

type RideHandler struct {
	responder
	rideService services.RideService
}

func NewRideHandler(rideService services.RideService, debug bool, logger *logger.Logger) *RideHandler {
	return &RideHandler{
		responder:   responder{debug: debug, logger: logger},
		rideService: rideService,
	}
}

func (h *RideHandler) RequestRide(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req validators.RideRequest
	if !h.bind(c, &req) {
		return
	}

	ride, err := h.rideService.RequestRide(c.Request.Context(), principal, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.CreatedResponse(c, "Ride requested successfully", ride)
}

func (h *RideHandler) ListRides(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	rides, total, err := h.rideService.ListRides(c.Request.Context(), principal, params)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponseWithMeta(c, "Rides retrieved successfully", rides, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

func (h *RideHandler) ListOpenRides(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	rides, err := h.rideService.ListOpenRides(c.Request.Context(), principal)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponseWithMeta(c, "Open rides retrieved successfully", rides, &utils.Meta{Count: len(rides)})
}

func (h *RideHandler) GetRide(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	rideID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	ride, err := h.rideService.GetRide(c.Request.Context(), principal, rideID)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "Ride retrieved successfully", ride)
}

func (h *RideHandler) AcceptRide(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	rideID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	ride, err := h.rideService.AcceptRide(c.Request.Context(), principal, rideID)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "Ride accepted successfully", ride)
}

func (h *RideHandler) MarkArrived(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	rideID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	ride, err := h.rideService.MarkArrived(c.Request.Context(), principal, rideID)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "Driver arrival recorded", ride)
}

func (h *RideHandler) StartRide(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	rideID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req validators.StartRideRequest
	if !h.bind(c, &req) {
		return
	}

	ride, err := h.rideService.StartRide(c.Request.Context(), principal, rideID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "Ride started successfully", ride)
}

func (h *RideHandler) CompleteRide(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	rideID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	// the final fare is optional, so is the body
	var req validators.CompleteRideRequest
	if c.Request.ContentLength > 0 && !h.bind(c, &req) {
		return
	}

	ride, err := h.rideService.CompleteRide(c.Request.Context(), principal, rideID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "Ride completed successfully", ride)
}

func (h *RideHandler) CancelRide(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	rideID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req validators.CancelRideRequest
	if !h.bind(c, &req) {
		return
	}

	ride, err := h.rideService.CancelRide(c.Request.Context(), principal, rideID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "Ride cancelled successfully", ride)
}

func (h *RideHandler) RateRide(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	rideID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req validators.RateRideRequest
	if !h.bind(c, &req) {
		return
	}

	ride, err := h.rideService.RateRide(c.Request.Context(), principal, rideID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "Ride rated successfully", ride)
}
