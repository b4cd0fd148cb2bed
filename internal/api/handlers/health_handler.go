package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/neurasense/internal/services"
)

type HealthHandler struct {
	sessions services.SessionService
	pool     WindowPool
}

func NewHealthHandler(sessions services.SessionService, pool WindowPool) *HealthHandler {
	return &HealthHandler{sessions: sessions, pool: pool}
}

func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"active_sessions": h.sessions.ActiveCount(),
		"pool":            h.pool.Stats(),
	})
}

// Sessions lists the live stream sessions.
func (h *HealthHandler) Sessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.sessions.List()})
}
