package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LedgerEntryType string

const (
	EntryEarned   LedgerEntryType = "earned"
	EntryRedeemed LedgerEntryType = "redeemed"
	EntryRefunded LedgerEntryType = "refunded"
	EntryAdjusted LedgerEntryType = "adjusted"
	EntryExpired  LedgerEntryType = "expired"
)

// PointsLedgerEntry is append-only: entries are never updated or deleted.
// Points is signed; positive entries are credits, negative are debits.
type PointsLedgerEntry struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	DonorID             uuid.UUID       `gorm:"type:uuid;not null;index" json:"donor_id"`
	Points              int             `gorm:"not null" json:"points"`
	TransactionType     LedgerEntryType `gorm:"not null" json:"transaction_type"`
	Description         string          `json:"description"`
	RelatedDonationID   *uuid.UUID      `gorm:"type:uuid;index" json:"related_donation_id,omitempty"`
	RelatedRedemptionID *uuid.UUID      `gorm:"type:uuid;index" json:"related_redemption_id,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

func (e *PointsLedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
