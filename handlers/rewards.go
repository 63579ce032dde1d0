package handlers

import (
	"net/http"

	"lifedrop-backend/models"
	"lifedrop-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RewardHandler struct {
	DB *gorm.DB
}

// GetRewards lists active catalog items for donors to browse.
func (h *RewardHandler) GetRewards(c *gin.Context) {
	var rewards []models.Reward
	query := h.DB.Where("is_active = ?", true)
	if cat := c.Query("category"); cat != "" {
		query = query.Where("category = ?", cat)
	}
	if err := query.Order("points_required ASC").Find(&rewards).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rewards"})
		return
	}
	c.JSON(http.StatusOK, rewards)
}

func (h *RewardHandler) GetReward(c *gin.Context) {
	id := c.Param("id")

	var reward models.Reward
	if err := h.DB.Where("id = ?", id).First(&reward).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Reward not found"})
		return
	}
	c.JSON(http.StatusOK, reward)
}

// GetRewardsAdmin lists all catalog items, inactive ones included.
func (h *RewardHandler) GetRewardsAdmin(c *gin.Context) {
	var rewards []models.Reward
	if err := h.DB.Order("created_at DESC").Find(&rewards).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rewards"})
		return
	}
	c.JSON(http.StatusOK, rewards)
}

func (h *RewardHandler) CreateReward(c *gin.Context) {
	var req struct {
		Title          string `json:"title" binding:"required"`
		Description    string `json:"description"`
		PointsRequired int    `json:"points_required" binding:"required,gt=0"`
		PartnerName    string `json:"partner_name"`
		Category       string `json:"category"`
		IsActive       *bool  `json:"is_active"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	reward := models.Reward{
		Title:          req.Title,
		Description:    req.Description,
		PointsRequired: req.PointsRequired,
		PartnerName:    req.PartnerName,
		Category:       req.Category,
		IsActive:       true,
	}
	if req.IsActive != nil {
		reward.IsActive = *req.IsActive
	}

	if err := h.DB.Create(&reward).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create reward"})
		return
	}

	c.JSON(http.StatusCreated, reward)
}

func (h *RewardHandler) UpdateReward(c *gin.Context) {
	id := c.Param("id")

	var reward models.Reward
	if err := h.DB.Where("id = ?", id).First(&reward).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Reward not found"})
		return
	}

	var req struct {
		Title          *string `json:"title"`
		Description    *string `json:"description"`
		PointsRequired *int    `json:"points_required"`
		PartnerName    *string `json:"partner_name"`
		Category       *string `json:"category"`
		IsActive       *bool   `json:"is_active"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	if req.Title != nil {
		reward.Title = *req.Title
	}
	if req.Description != nil {
		reward.Description = *req.Description
	}
	if req.PointsRequired != nil {
		if *req.PointsRequired <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "points_required must be positive"})
			return
		}
		// Existing vouchers keep their PointsSpent snapshot; the new
		// cost only applies to future redemptions.
		reward.PointsRequired = *req.PointsRequired
	}
	if req.PartnerName != nil {
		reward.PartnerName = *req.PartnerName
	}
	if req.Category != nil {
		reward.Category = *req.Category
	}

	if err := h.DB.Save(&reward).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update reward"})
		return
	}

	// Explicit update so a false value is persisted even though it is
	// the Go zero value.
	if req.IsActive != nil {
		if err := h.DB.Model(&reward).Update("is_active", *req.IsActive).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update reward"})
			return
		}
		reward.IsActive = *req.IsActive
	}

	c.JSON(http.StatusOK, reward)
}

// DeleteReward soft-deletes a catalog item. Vouchers already issued on it
// remain verifiable; only new redemptions stop.
func (h *RewardHandler) DeleteReward(c *gin.Context) {
	id := c.Param("id")

	var reward models.Reward
	if err := h.DB.Where("id = ?", id).First(&reward).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Reward not found"})
		return
	}

	if err := h.DB.Delete(&reward).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete reward"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Reward deleted successfully"})
}
