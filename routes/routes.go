package routes

import (
	"time"

	"lifedrop-backend/config"
	"lifedrop-backend/handlers"
	"lifedrop-backend/middleware"
	"lifedrop-backend/services"
	"lifedrop-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func SetupRoutes(r *gin.Engine, db *gorm.DB, settings *config.RewardsSettings, hub *utils.ActivityHub) {
	// Core services
	ledger := services.NewLedgerService(db)
	redemptions := services.NewRedemptionService(db, ledger, settings, hub)
	verifier := services.NewVerifierService(db, ledger, hub)
	reclaimer := services.NewReclaimerService(db, ledger, settings, hub)

	// Handlers
	pointsHandler := &handlers.PointsHandler{DB: db, Ledger: ledger}
	rewardHandler := &handlers.RewardHandler{DB: db}
	redemptionHandler := &handlers.RedemptionHandler{Redemptions: redemptions}
	merchantHandler := &handlers.MerchantHandler{Verifier: verifier}
	donationHandler := &handlers.DonationHandler{DB: db, Ledger: ledger, Settings: settings, Events: hub}
	tierHandler := &handlers.TierHandler{DB: db}
	adminHandler := &handlers.AdminHandler{Settings: settings, Reclaimer: reclaimer}
	activityHandler := &handlers.ActivityHandler{Hub: hub}

	// Public routes
	api := r.Group("/api")
	{
		api.GET("/rewards", rewardHandler.GetRewards)
		api.GET("/rewards/:id", rewardHandler.GetReward)
		api.GET("/tiers", tierHandler.GetTiers)
	}

	// Donor routes (require authentication)
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/points", pointsHandler.GetBalance)
		protected.GET("/points/history", pointsHandler.GetHistory)

		protected.POST("/redemptions", redemptionHandler.Redeem)
		protected.GET("/redemptions", redemptionHandler.GetVouchers)
		protected.DELETE("/redemptions/:id", redemptionHandler.DeleteVoucher)
	}

	// Merchant routes: verification is rate limited per terminal so a
	// misbehaving client cannot brute-force voucher codes.
	verifyLimiter := middleware.NewRateLimiter(30, time.Minute)
	merchant := api.Group("/merchant")
	merchant.Use(middleware.AuthMiddleware())
	merchant.Use(middleware.MerchantMiddleware())
	{
		merchant.POST("/verify", verifyLimiter.Middleware(), merchantHandler.Verify)
		merchant.GET("/preview/:code", merchantHandler.Preview)
	}

	// Admin routes (require admin role)
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.AdminMiddleware())
	{
		admin.GET("/rewards", rewardHandler.GetRewardsAdmin)
		admin.POST("/rewards", rewardHandler.CreateReward)
		admin.PUT("/rewards/:id", rewardHandler.UpdateReward)
		admin.DELETE("/rewards/:id", rewardHandler.DeleteReward)

		admin.POST("/tiers", tierHandler.CreateTier)
		admin.PUT("/tiers/:id", tierHandler.UpdateTier)
		admin.DELETE("/tiers/:id", tierHandler.DeleteTier)

		admin.GET("/donations", donationHandler.GetDonations)
		admin.POST("/donations", donationHandler.RecordDonation)
		admin.POST("/donations/:id/award", donationHandler.AwardDonationPoints)
		admin.DELETE("/donations/:id", donationHandler.DeleteDonation)

		admin.GET("/settings", adminHandler.GetSettings)
		admin.POST("/settings/reload", adminHandler.ReloadSettings)
		admin.POST("/reclaim", adminHandler.TriggerReclaim)

		admin.GET("/activity/ws", activityHandler.Subscribe)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}

// NewReclaimer builds the background sweep service for main.
func NewReclaimer(db *gorm.DB, settings *config.RewardsSettings, hub *utils.ActivityHub) *services.ReclaimerService {
	return services.NewReclaimerService(db, services.NewLedgerService(db), settings, hub)
}
