package handlers

import (
	"net/http"

	"lifedrop-backend/models"
	"lifedrop-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TierHandler struct {
	DB *gorm.DB
}

// GetTiers lists the configured discount tiers, lowest threshold first.
func (h *TierHandler) GetTiers(c *gin.Context) {
	var tiers []models.TierDefinition
	if err := h.DB.Order("min_points ASC").Find(&tiers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tiers"})
		return
	}
	c.JSON(http.StatusOK, tiers)
}

func (h *TierHandler) CreateTier(c *gin.Context) {
	var req struct {
		Name            string  `json:"name" binding:"required"`
		MinPoints       int     `json:"min_points" binding:"min=0"`
		DiscountPercent float64 `json:"discount_percent" binding:"min=0,max=100"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var existing int64
	h.DB.Model(&models.TierDefinition{}).Where("min_points = ?", req.MinPoints).Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "A tier with that min_points already exists"})
		return
	}

	tier := models.TierDefinition{
		Name:            req.Name,
		MinPoints:       req.MinPoints,
		DiscountPercent: req.DiscountPercent,
	}
	if err := h.DB.Create(&tier).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tier"})
		return
	}

	c.JSON(http.StatusCreated, tier)
}

func (h *TierHandler) UpdateTier(c *gin.Context) {
	id := c.Param("id")

	var tier models.TierDefinition
	if err := h.DB.Where("id = ?", id).First(&tier).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tier not found"})
		return
	}

	var req struct {
		Name            *string  `json:"name"`
		MinPoints       *int     `json:"min_points"`
		DiscountPercent *float64 `json:"discount_percent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	if req.Name != nil {
		tier.Name = *req.Name
	}
	if req.MinPoints != nil {
		if *req.MinPoints < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_points cannot be negative"})
			return
		}
		tier.MinPoints = *req.MinPoints
	}
	if req.DiscountPercent != nil {
		if *req.DiscountPercent < 0 || *req.DiscountPercent > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "discount_percent must be between 0 and 100"})
			return
		}
		tier.DiscountPercent = *req.DiscountPercent
	}

	if err := h.DB.Save(&tier).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tier"})
		return
	}

	c.JSON(http.StatusOK, tier)
}

func (h *TierHandler) DeleteTier(c *gin.Context) {
	id := c.Param("id")

	var tier models.TierDefinition
	if err := h.DB.Where("id = ?", id).First(&tier).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tier not found"})
		return
	}

	if err := h.DB.Delete(&tier).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete tier"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tier deleted successfully"})
}
