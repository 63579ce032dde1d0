package handlers

import (
	"net/http"

	"lifedrop-backend/services"
	"lifedrop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RedemptionHandler struct {
	Redemptions *services.RedemptionService
}

// Redeem exchanges the caller's points for a voucher on a reward.
func (h *RedemptionHandler) Redeem(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		RewardID string `json:"reward_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	rewardID, err := uuid.Parse(req.RewardID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reward_id"})
		return
	}

	red, err := h.Redemptions.Redeem(userID.(uuid.UUID), rewardID)
	if err != nil {
		status, msg := serviceErrorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":           red.ID,
		"voucher_code": red.VoucherCode,
		"points_spent": red.PointsSpent,
		"expires_at":   red.ExpiresAt,
		"reward":       red.Reward,
	})
}

// GetVouchers lists the caller's redemptions, newest first.
func (h *RedemptionHandler) GetVouchers(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	reds, err := h.Redemptions.VouchersFor(userID.(uuid.UUID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch vouchers"})
		return
	}

	c.JSON(http.StatusOK, reds)
}

// DeleteVoucher cancels a still-pending voucher and refunds its points.
func (h *RedemptionHandler) DeleteVoucher(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	redemptionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid voucher id"})
		return
	}

	refunded, err := h.Redemptions.DeleteVoucher(userID.(uuid.UUID), redemptionID)
	if err != nil {
		status, msg := serviceErrorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"points_refunded": refunded})
}
