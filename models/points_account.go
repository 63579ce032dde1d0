package models

import (
	"time"

	"github.com/google/uuid"
)

// DonorPointsAccount is the cached projection of a donor's ledger.
// TotalPoints is the spendable balance; LifetimePoints only ever grows.
// Both are mutated exclusively through the ledger service, which keeps
// the invariant sum(ledger entries) == TotalPoints.
type DonorPointsAccount struct {
	DonorID        uuid.UUID `gorm:"type:uuid;primary_key" json:"donor_id"`
	TotalPoints    int       `gorm:"not null;default:0" json:"total_points"`
	LifetimePoints int       `gorm:"not null;default:0" json:"lifetime_points"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
