package handlers

import (
	"errors"
	"net/http"

	"lifedrop-backend/services"
	"lifedrop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MerchantHandler struct {
	Verifier *services.VerifierService
}

// Verify consumes a voucher at point of sale. On AlreadyUsed the response
// carries the original verification's timestamp and merchant so the
// terminal can show who redeemed it and when.
func (h *MerchantHandler) Verify(c *gin.Context) {
	merchantID, exists := c.Get("merchant_id")
	if !exists {
		c.JSON(http.StatusForbidden, gin.H{"error": "Merchant access required"})
		return
	}

	var req struct {
		VoucherCode string `json:"voucher_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	result, err := h.Verifier.Verify(req.VoucherCode, merchantID.(uuid.UUID))
	if err != nil {
		status, msg := serviceErrorStatus(err)
		body := gin.H{"error": msg}
		if errors.Is(err, services.ErrAlreadyUsed) && result != nil && result.Redemption != nil {
			body["verified_at"] = result.Redemption.VerifiedAt
			body["verified_by_merchant_id"] = result.Redemption.VerifiedByMerchantID
		}
		c.JSON(status, body)
		return
	}

	resp := gin.H{
		"redemption": result.Redemption,
		"reward":     result.Reward,
		"customer": gin.H{
			"id":   result.Donor.ID,
			"name": result.Donor.Name,
		},
		"tier": gin.H{
			"name":             result.Tier.Name,
			"discount_percent": result.Tier.DiscountPercent,
		},
		"current_points": result.CurrentPoints,
	}
	if result.RewardInactive {
		resp["warning"] = "Reward has been deactivated since this voucher was issued"
	}

	c.JSON(http.StatusOK, resp)
}

// Preview reports a voucher's validity without consuming it.
func (h *MerchantHandler) Preview(c *gin.Context) {
	code := c.Param("code")

	result, err := h.Verifier.Preview(code)
	if err != nil {
		status, msg := serviceErrorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, result)
}
