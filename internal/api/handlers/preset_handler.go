package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/neurasense/internal/services"
)

type PresetHandler struct {
	presets services.PresetService
}

func NewPresetHandler(presets services.PresetService) *PresetHandler {
	return &PresetHandler{presets: presets}
}

// List serves GET /presets.
func (h *PresetHandler) List(c *gin.Context) {
	out, err := h.presets.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"default": h.presets.Default(),
		"presets": out,
	})
}

// Get serves GET /presets/:name with the effective config next to the
// stored preset, so clients see the overrides in force.
func (h *PresetHandler) Get(c *gin.Context) {
	name := c.Param("name")
	p, err := h.presets.Get(c.Request.Context(), name)
	if err != nil {
		writeError(c, err)
		return
	}
	cfg, err := h.presets.Resolve(c.Request.Context(), name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"preset":    p,
		"effective": cfg,
	})
}
