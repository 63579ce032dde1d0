package handlers

import (
	"net/http"

	"lifedrop-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PointsHandler struct {
	DB     *gorm.DB
	Ledger *services.LedgerService
}

// GetBalance returns the caller's spendable and lifetime points plus the
// tier their current balance classifies into.
func (h *PointsHandler) GetBalance(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	acct, err := h.Ledger.Balance(userID.(uuid.UUID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch balance"})
		return
	}

	tier, err := services.TierFor(h.DB, acct.TotalPoints)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to classify tier"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_points":    acct.TotalPoints,
		"lifetime_points": acct.LifetimePoints,
		"tier":            tier,
	})
}

// GetHistory returns the caller's ledger entries, most recent first.
func (h *PointsHandler) GetHistory(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entries, err := h.Ledger.History(userID.(uuid.UUID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history"})
		return
	}

	c.JSON(http.StatusOK, entries)
}
