package handlers

import (
	"fmt"
	"net/http"
	"time"

	"lifedrop-backend/config"
	"lifedrop-backend/models"
	"lifedrop-backend/services"
	"lifedrop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DonationHandler is the donation recorder: it creates donation rows and
// drives the idempotent ledger credits/debits they cause. Donations can be
// retried by upstream systems, so awarding is keyed on the donation id.
type DonationHandler struct {
	DB       *gorm.DB
	Ledger   *services.LedgerService
	Settings *config.RewardsSettings
	Events   *utils.ActivityHub
}

func (h *DonationHandler) RecordDonation(c *gin.Context) {
	var req struct {
		DonorID   string `json:"donor_id" binding:"required"`
		Location  string `json:"location"`
		Notes     string `json:"notes"`
		DonatedAt string `json:"donated_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	donorID, err := uuid.Parse(req.DonorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid donor_id"})
		return
	}

	var donor models.User
	if err := h.DB.Where("id = ?", donorID).First(&donor).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Donor not found"})
		return
	}

	donatedAt := time.Now()
	if req.DonatedAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.DonatedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "donated_at must be RFC3339"})
			return
		}
		donatedAt = parsed
	}

	points := h.Settings.PointsPerDonation()
	donation := models.Donation{
		ID:            uuid.New(),
		DonorID:       donorID,
		Location:      req.Location,
		Notes:         req.Notes,
		PointsAwarded: points,
		DonatedAt:     donatedAt,
	}
	if err := h.DB.Create(&donation).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record donation"})
		return
	}

	if _, err := h.Ledger.Credit(donorID, points, models.EntryEarned,
		fmt.Sprintf("Blood donation at %s", donation.Location),
		services.LedgerRef{DonationID: &donation.ID}); err != nil {
		status, msg := serviceErrorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	h.Events.Publish(utils.ActivityEvent{
		Type:    "donation",
		DonorID: donorID,
		Points:  points,
	})

	c.JSON(http.StatusCreated, donation)
}

// AwardDonationPoints re-runs the credit for an existing donation. The
// ledger detects the duplicate and no-ops, so upstream retries are safe.
func (h *DonationHandler) AwardDonationPoints(c *gin.Context) {
	donationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid donation id"})
		return
	}

	var donation models.Donation
	if err := h.DB.Where("id = ?", donationID).First(&donation).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Donation not found"})
		return
	}

	entry, err := h.Ledger.Credit(donation.DonorID, donation.PointsAwarded, models.EntryEarned,
		fmt.Sprintf("Blood donation at %s", donation.Location),
		services.LedgerRef{DonationID: &donation.ID})
	if err != nil {
		status, msg := serviceErrorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, entry)
}

// DeleteDonation removes a donation record and reverses its points with
// an idempotent debit.
func (h *DonationHandler) DeleteDonation(c *gin.Context) {
	donationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid donation id"})
		return
	}

	var donation models.Donation
	if err := h.DB.Where("id = ?", donationID).First(&donation).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Donation not found"})
		return
	}

	if _, err := h.Ledger.Debit(donation.DonorID, donation.PointsAwarded, models.EntryAdjusted,
		"Donation record deleted",
		services.LedgerRef{DonationID: &donation.ID}); err != nil {
		status, msg := serviceErrorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	if err := h.DB.Delete(&donation).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete donation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Donation deleted and points reversed"})
}

// GetDonations lists donations, optionally filtered by donor.
func (h *DonationHandler) GetDonations(c *gin.Context) {
	var donations []models.Donation
	query := h.DB.Order("donated_at DESC")
	if donorID := c.Query("donor_id"); donorID != "" {
		query = query.Where("donor_id = ?", donorID)
	}
	if err := query.Find(&donations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch donations"})
		return
	}
	c.JSON(http.StatusOK, donations)
}
