package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RedemptionStatus string

const (
	RedemptionStatusPending   RedemptionStatus = "pending"
	RedemptionStatusVerified  RedemptionStatus = "verified"
	RedemptionStatusExpired   RedemptionStatus = "expired"
	RedemptionStatusCancelled RedemptionStatus = "cancelled"
)

// Redemption is a time-boxed voucher: points were debited when it was
// created, and exactly one of {verify, owner delete, expiry sweep} may
// consume or refund it. PointsSpent is a snapshot of the reward's cost at
// redemption time and never changes afterwards.
type Redemption struct {
	ID                   uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	DonorID              uuid.UUID        `gorm:"type:uuid;not null;index" json:"donor_id"`
	Donor                User             `gorm:"foreignKey:DonorID" json:"donor,omitempty"`
	RewardID             uuid.UUID        `gorm:"type:uuid;not null;index" json:"reward_id"`
	Reward               Reward           `gorm:"foreignKey:RewardID" json:"reward,omitempty"`
	VoucherCode          string           `gorm:"uniqueIndex;not null" json:"voucher_code"`
	PointsSpent          int              `gorm:"not null" json:"points_spent"`
	Status               RedemptionStatus `gorm:"default:pending;index" json:"status"`
	ExpiresAt            time.Time        `gorm:"not null;index" json:"expires_at"`
	VerifiedAt           *time.Time       `json:"verified_at,omitempty"`
	VerifiedByMerchantID *uuid.UUID       `gorm:"type:uuid" json:"verified_by_merchant_id,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

func (r *Redemption) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// AllowedRedemptionTransitions defines the voucher status state machine.
// Verified is terminal; expired rows are eventually purged by the sweep.
var AllowedRedemptionTransitions = map[RedemptionStatus][]RedemptionStatus{
	RedemptionStatusPending:   {RedemptionStatusVerified, RedemptionStatusExpired, RedemptionStatusCancelled},
	RedemptionStatusVerified:  {},
	RedemptionStatusExpired:   {},
	RedemptionStatusCancelled: {},
}

// IsValidRedemptionTransition checks if a status transition is allowed.
func IsValidRedemptionTransition(from, to RedemptionStatus) bool {
	allowed, exists := AllowedRedemptionTransitions[from]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}
