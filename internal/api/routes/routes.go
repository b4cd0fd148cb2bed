package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/neurasense/internal/api/handlers"
)

type Deps struct {
	Health  *handlers.HealthHandler
	Presets *handlers.PresetHandler
	WS      *handlers.WSHandler
	Metrics http.Handler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", d.Health.Ping)
	r.GET("/healthz", d.Health.Healthz)
	r.GET("/sessions", d.Health.Sessions)

	r.GET("/presets", d.Presets.List)
	r.GET("/presets/:name", d.Presets.Get)

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	// WebSocket
	r.GET("/ws", d.WS.Stream)
}
