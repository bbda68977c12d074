package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"miniola/internal/middleware"
	"miniola/internal/models"
	"miniola/internal/services"
	"miniola/internal/utils"
	"miniola/pkg/logger"
)

var kindStatus = map[services.ErrorKind]int{
	services.KindValidation:         http.StatusBadRequest,
	services.KindUnauthenticated:    http.StatusUnauthorized,
	services.KindUnauthorized:       http.StatusForbidden,
	services.KindNotFound:           http.StatusNotFound,
	services.KindNoDriversAvailable: http.StatusNotFound,
	services.KindDuplicate:          http.StatusConflict,
	services.KindConflict:           http.StatusConflict,
	services.KindInvalidState:       http.StatusConflict,
	services.KindOTPMismatch:        http.StatusUnprocessableEntity,
	services.KindInsufficientFunds:  http.StatusPaymentRequired,
	services.KindInternal:           http.StatusInternalServerError,
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind services.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// responder renders service errors. Causes are only exposed in debug mode.
type responder struct {
	debug  bool
	logger *logger.Logger
}

func (r responder) fail(c *gin.Context, err error) {
	kind := services.KindOf(err)
	status := StatusFor(kind)

	message := "Internal server error"
	var details map[string]string
	var appErr *services.AppError
	if errors.As(err, &appErr) {
		if kind != services.KindInternal || r.debug {
			message = appErr.Message
		}
		details = appErr.Fields
		if r.debug && details == nil && appErr.Err != nil {
			details = map[string]string{"cause": appErr.Err.Error()}
		}
	}

	if status >= http.StatusInternalServerError {
		r.logger.WithError(err).WithFields(map[string]interface{}{
			"path":       c.Request.URL.Path,
			"request_id": c.GetString(utils.ContextKeyRequestID),
		}).Error("Request failed")
	}

	utils.ErrorResponseWithDetails(c, status, string(kind), message, details)
}

func (r responder) badRequest(c *gin.Context, message string) {
	utils.ErrorResponse(c, http.StatusBadRequest, string(services.KindValidation), message)
}

// bind decodes the JSON body; field rules are checked by the services.
func (r responder) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		r.badRequest(c, "Invalid request body")
		return false
	}
	return true
}

func (r responder) principal(c *gin.Context) (models.Principal, bool) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, string(services.KindUnauthenticated), "Authentication required")
	}
	return principal, ok
}

func (r responder) pathID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		r.badRequest(c, "Invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}

func clientMeta(c *gin.Context) services.ClientMeta {
	return services.ClientMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}
