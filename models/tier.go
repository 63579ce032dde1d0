package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TierDefinition is a discount bracket. A donor's tier is the highest
// definition whose MinPoints does not exceed their current balance.
type TierDefinition struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name            string    `gorm:"not null" json:"name"`
	MinPoints       int       `gorm:"not null" json:"min_points"`
	DiscountPercent float64   `gorm:"not null;default:0" json:"discount_percent"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (t *TierDefinition) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
