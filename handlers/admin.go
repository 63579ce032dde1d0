package handlers

import (
	"net/http"

	"lifedrop-backend/config"
	"lifedrop-backend/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes the operational surface: settings inspection and
// reload, and an on-demand expiry sweep using the same code path as the
// background ticker.
type AdminHandler struct {
	Settings  *config.RewardsSettings
	Reclaimer *services.ReclaimerService
}

func (h *AdminHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.Settings.Snapshot())
}

func (h *AdminHandler) ReloadSettings(c *gin.Context) {
	if err := h.Settings.Reload(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload settings"})
		return
	}
	c.JSON(http.StatusOK, h.Settings.Snapshot())
}

func (h *AdminHandler) TriggerReclaim(c *gin.Context) {
	summary := h.Reclaimer.ReclaimExpired()
	c.JSON(http.StatusOK, summary)
}
