package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"miniola/internal/models"
	"miniola/internal/utils"
	"miniola/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticTokens map[string]models.Principal

func (s staticTokens) ParseAccessToken(token string) (models.Principal, error) {
	if p, ok := s[token]; ok {
		return p, nil
	}
	return models.Principal{}, errors.New("bad token")
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	driver := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleDriver}
	tokens := staticTokens{"good": driver}

	r := gin.New()
	r.GET("/me", AuthRequired(tokens), func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		require.True(t, ok)
		c.String(http.StatusOK, p.ID.Hex())
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := serve(r, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, driver.ID.Hex(), w.Body.String())
			}
		})
	}
}

func TestRoleRequiredWithoutPrincipal(t *testing.T) {
	r := gin.New()
	r.GET("/x", RiderRequired(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminKeyRequiredDisabledWhenUnset(t *testing.T) {
	r := gin.New()
	r.GET("/admin", AdminKeyRequired("", logger.NewDiscard()), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(utils.HeaderAdminKey, "")
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)
}

func TestWebSocketIdentity(t *testing.T) {
	rider := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleRider}
	identify := WebSocketIdentity(staticTokens{"tok": rider})

	check := func(target, header string) (primitive.ObjectID, string, bool) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, target, nil)
		if header != "" {
			c.Request.Header.Set("Authorization", header)
		}
		return identify(c)
	}

	id, role, ok := check("/ws?token=tok", "")
	assert.True(t, ok)
	assert.Equal(t, rider.ID, id)
	assert.Equal(t, "rider", role)

	_, _, ok = check("/ws", "Bearer tok")
	assert.True(t, ok)

	_, _, ok = check("/ws", "")
	assert.False(t, ok)

	_, _, ok = check("/ws?token=other", "")
	assert.False(t, ok)
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(utils.ContextKeyRequestID)) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(utils.HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(utils.HeaderRequestID, "req-123")
	w = serve(r, req)
	assert.Equal(t, "req-123", w.Header().Get(utils.HeaderRequestID))
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.example.com"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryMiddleware(logger.NewDiscard()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL")
}
