package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports service liveness and cache reachability.
type HealthHandler struct {
	redis *redis.Client
}

func NewHealthHandler(redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{redis: redisClient}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	checks := gin.H{"redis": "disabled"}

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unreachable: " + err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
	})
}
