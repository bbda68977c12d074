package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"miniola/internal/models"
	"miniola/internal/utils"
	"miniola/pkg/logger"
)

// TokenParser is satisfied by services.TokenService.
type TokenParser interface {
	ParseAccessToken(accessToken string) (models.Principal, error)
}

// AuthRequired validates the bearer token and stores the caller's Principal
// in the context.
func AuthRequired(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Authorization header required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Bearer token required")
			return
		}

		principal, err := tokens.ParseAccessToken(tokenString)
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Invalid or expired token")
			return
		}

		c.Set(utils.ContextKeyPrincipal, principal)
		c.Next()
	}
}

// GetPrincipal returns the caller set by AuthRequired.
func GetPrincipal(c *gin.Context) (models.Principal, bool) {
	value, exists := c.Get(utils.ContextKeyPrincipal)
	if !exists {
		return models.Principal{}, false
	}
	principal, ok := value.(models.Principal)
	return principal, ok
}

func RoleRequired(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required")
			return
		}
		if principal.Role != role {
			utils.ErrorResponse(c, http.StatusForbidden, "UNAUTHORIZED", "This action requires a "+string(role)+" account")
			return
		}
		c.Next()
	}
}

func RiderRequired() gin.HandlerFunc {
	return RoleRequired(models.RoleRider)
}

func DriverRequired() gin.HandlerFunc {
	return RoleRequired(models.RoleDriver)
}

// AdminKeyRequired guards back-office routes with a shared key. An empty
// configured key disables them.
func AdminKeyRequired(adminKey string, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(utils.HeaderAdminKey)
		if adminKey == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(adminKey)) != 1 {
			log.LogSecurityEvent("admin_key_rejected", "medium", map[string]interface{}{
				"ip_address": c.ClientIP(),
				"path":       c.Request.URL.Path,
			})
			utils.ErrorResponse(c, http.StatusForbidden, "UNAUTHORIZED", "Admin access required")
			return
		}
		c.Next()
	}
}

// WebSocketIdentity authenticates upgrade requests. Browsers cannot set
// headers on a websocket handshake, so the token may also come from the
// "token" query parameter.
func WebSocketIdentity(tokens TokenParser) func(c *gin.Context) (primitive.ObjectID, string, bool) {
	return func(c *gin.Context) (primitive.ObjectID, string, bool) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			return primitive.NilObjectID, "", false
		}

		principal, err := tokens.ParseAccessToken(token)
		if err != nil {
			return primitive.NilObjectID, "", false
		}
		return principal.ID, string(principal.Role), true
	}
}
