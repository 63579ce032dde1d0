package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Donation records a single blood donation. Its ID is the idempotency key
// for the ledger credit that awards points, so re-submitting the same
// donation never double-credits.
type Donation struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	DonorID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"donor_id"`
	Donor         User           `gorm:"foreignKey:DonorID" json:"-"`
	Location      string         `json:"location"`
	Notes         string         `json:"notes"`
	PointsAwarded int            `gorm:"not null" json:"points_awarded"`
	DonatedAt     time.Time      `gorm:"not null" json:"donated_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (d *Donation) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
