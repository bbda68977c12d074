package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by database.MongoDB and cache.RedisCache.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	version string
	mongo   Pinger
	redis   Pinger
	clients func() int
}

// NewHealthHandler builds the liveness probe. redis and clients may be nil.
func NewHealthHandler(version string, mongo, redis Pinger, clients func() int) *HealthHandler {
	return &HealthHandler{version: version, mongo: mongo, redis: redis, clients: clients}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{"mongodb": "up"}
	if err := h.mongo.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		checks["mongodb"] = "down"
	}
	if h.redis != nil {
		checks["redis"] = "up"
		if err := h.redis.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks["redis"] = "down"
		}
	}

	body := gin.H{
		"status":    "healthy",
		"version":   h.version,
		"checks":    checks,
		"timestamp": time.Now(),
	}
	if status != http.StatusOK {
		body["status"] = "unhealthy"
	}
	if h.clients != nil {
		body["websocket_clients"] = h.clients()
	}
	c.JSON(status, body)
}
