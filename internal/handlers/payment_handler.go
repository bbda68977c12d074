package handlers

import (
	"github.com/gin-gonic/gin"

	"miniola/internal/services"
	"miniola/internal/utils"
	"miniola/internal/validators"
	"miniola/pkg/logger"
)

type PaymentHandler struct {
	responder
	paymentService services.PaymentService
}

func NewPaymentHandler(paymentService services.PaymentService, debug bool, logger *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		responder:      responder{debug: debug, logger: logger},
		paymentService: paymentService,
	}
}

func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req validators.CreatePaymentRequest
	if !h.bind(c, &req) {
		return
	}

	payment, err := h.paymentService.CreatePayment(c.Request.Context(), principal, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.CreatedResponse(c, "Payment created successfully", payment)
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	paymentID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), principal, paymentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "Payment retrieved successfully", payment)
}

func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	paymentID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	payment, err := h.paymentService.ProcessPayment(c.Request.Context(), principal, paymentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "Payment processed successfully", payment)
}

func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	paymentID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req validators.RefundPaymentRequest
	if !h.bind(c, &req) {
		return
	}

	payment, err := h.paymentService.RefundPayment(c.Request.Context(), principal, paymentID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessResponse(c, "Payment refunded successfully", payment)
}
