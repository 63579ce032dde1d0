package database

import (
	"fmt"
	"log"
	"os"

	"lifedrop-backend/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect() (*gorm.DB, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=lifedrop port=5432 sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	// Ensure PostgreSQL has gen_random_uuid() available (pgcrypto extension).
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		return fmt.Errorf("failed to enable pgcrypto extension: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.DonorPointsAccount{},
		&models.PointsLedgerEntry{},
		&models.Reward{},
		&models.Redemption{},
		&models.TierDefinition{},
		&models.Donation{},
	); err != nil {
		return err
	}

	// One ledger entry per (donor, related row, type). This backs the
	// idempotent award/refund guarantee at the storage layer; NULL
	// related ids stay distinct, so unkeyed entries are unaffected.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_donation_once
		ON points_ledger_entries (donor_id, related_donation_id, transaction_type)
		WHERE related_donation_id IS NOT NULL;
	`).Error; err != nil {
		return fmt.Errorf("failed to create donation idempotency index: %w", err)
	}
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_redemption_once
		ON points_ledger_entries (donor_id, related_redemption_id, transaction_type)
		WHERE related_redemption_id IS NOT NULL;
	`).Error; err != nil {
		return fmt.Errorf("failed to create redemption idempotency index: %w", err)
	}

	return nil
}

func CreateDefaultAdmin(db *gorm.DB) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" {
		adminEmail = "admin@lifedrop.org"
	}
	if adminPassword == "" {
		adminPassword = "admin123"
	}

	var existingUser models.User
	result := db.Where("email = ?", adminEmail).First(&existingUser)
	if result.Error == nil {
		// Admin already exists
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:    adminEmail,
		Password: string(hashedPassword),
		Role:     "admin",
		Name:     "Admin User",
	}

	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("Default admin created: %s", adminEmail)
	return nil
}

// SeedDefaultTiers installs the standard discount brackets when none are
// configured yet. Admins can reshape them afterwards.
func SeedDefaultTiers(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.TierDefinition{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tiers := []models.TierDefinition{
		{Name: "Bronze", MinPoints: 0, DiscountPercent: 0},
		{Name: "Silver", MinPoints: 500, DiscountPercent: 5},
		{Name: "Gold", MinPoints: 1500, DiscountPercent: 10},
		{Name: "Platinum", MinPoints: 3000, DiscountPercent: 15},
	}
	for i := range tiers {
		if err := db.Create(&tiers[i]).Error; err != nil {
			return err
		}
	}

	log.Printf("Seeded %d default tiers", len(tiers))
	return nil
}
