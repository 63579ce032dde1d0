package services

import (
	"errors"
	"fmt"

	"lifedrop-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// balanceRetries bounds the optimistic-update loop. Contention on a single
// donor's account is rare (one person, a handful of terminals), so three
// attempts is plenty before reporting ErrConcurrentModification.
const balanceRetries = 3

// errStaleBalance signals that the conditional balance update matched no
// row: another writer got in between the read and the write.
var errStaleBalance = errors.New("stale balance read")

// LedgerRef links a ledger entry to the donation or redemption that caused
// it. The (donor, related id, transaction type) triple is the idempotency
// key: re-applying the same operation is a detected no-op.
type LedgerRef struct {
	DonationID   *uuid.UUID
	RedemptionID *uuid.UUID
}

// LedgerService owns all balance mutations. Accounts are only ever touched
// through Credit/Debit so that the account row stays a projection of the
// append-only entries.
type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// Credit adds points to a donor's balance. Credits of type "earned" also
// grow LifetimePoints; refunds restore spendable balance only.
func (s *LedgerService) Credit(donorID uuid.UUID, points int, entryType models.LedgerEntryType, description string, ref LedgerRef) (*models.PointsLedgerEntry, error) {
	if points <= 0 {
		return nil, fmt.Errorf("credit points must be positive, got %d", points)
	}
	return s.apply(donorID, points, entryType, description, ref)
}

// Debit removes points from a donor's balance. Fails with
// ErrInsufficientPoints when the balance cannot cover it.
func (s *LedgerService) Debit(donorID uuid.UUID, points int, entryType models.LedgerEntryType, description string, ref LedgerRef) (*models.PointsLedgerEntry, error) {
	if points <= 0 {
		return nil, fmt.Errorf("debit points must be positive, got %d", points)
	}
	return s.apply(donorID, -points, entryType, description, ref)
}

// Balance returns the donor's account, creating a zeroed one on first
// touch so callers never have to special-case new donors.
func (s *LedgerService) Balance(donorID uuid.UUID) (*models.DonorPointsAccount, error) {
	var acct models.DonorPointsAccount
	err := s.DB.Where("donor_id = ?", donorID).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		acct = models.DonorPointsAccount{DonorID: donorID}
		if err := s.DB.Create(&acct).Error; err != nil {
			return nil, err
		}
		return &acct, nil
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// History returns the donor's ledger entries, most recent first.
func (s *LedgerService) History(donorID uuid.UUID) ([]models.PointsLedgerEntry, error) {
	var entries []models.PointsLedgerEntry
	if err := s.DB.Where("donor_id = ?", donorID).Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// apply appends a ledger entry and adjusts the cached balance in one
// transaction. The balance write is conditioned on the value read at the
// start of the attempt (compare-and-swap), so two writers racing on the
// same account cannot both base their update on the same prior balance.
// Different donors' accounts never contend: the condition is per-row.
func (s *LedgerService) apply(donorID uuid.UUID, delta int, entryType models.LedgerEntryType, description string, ref LedgerRef) (*models.PointsLedgerEntry, error) {
	var entry *models.PointsLedgerEntry

	for attempt := 0; attempt < balanceRetries; attempt++ {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			acct, err := fetchOrCreateAccount(tx, donorID)
			if err != nil {
				return err
			}

			if existing, err := findExistingEntry(tx, donorID, entryType, ref); err != nil {
				return err
			} else if existing != nil {
				entry = existing
				return nil
			}

			newTotal := acct.TotalPoints + delta
			if newTotal < 0 {
				return ErrInsufficientPoints
			}

			updates := map[string]interface{}{"total_points": newTotal}
			if delta > 0 && entryType == models.EntryEarned {
				updates["lifetime_points"] = acct.LifetimePoints + delta
			}

			res := tx.Model(&models.DonorPointsAccount{}).
				Where("donor_id = ? AND total_points = ?", donorID, acct.TotalPoints).
				Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStaleBalance
			}

			entry = &models.PointsLedgerEntry{
				ID:                  uuid.New(),
				DonorID:             donorID,
				Points:              delta,
				TransactionType:     entryType,
				Description:         description,
				RelatedDonationID:   ref.DonationID,
				RelatedRedemptionID: ref.RedemptionID,
			}
			return tx.Create(entry).Error
		})

		if errors.Is(err, errStaleBalance) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return entry, nil
	}

	return nil, ErrConcurrentModification
}

func fetchOrCreateAccount(tx *gorm.DB, donorID uuid.UUID) (*models.DonorPointsAccount, error) {
	var acct models.DonorPointsAccount
	err := tx.Where("donor_id = ?", donorID).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		acct = models.DonorPointsAccount{DonorID: donorID}
		if err := tx.Create(&acct).Error; err != nil {
			return nil, err
		}
		return &acct, nil
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// findExistingEntry implements the idempotency check. Entries without a
// related donation or redemption are always applied.
func findExistingEntry(tx *gorm.DB, donorID uuid.UUID, entryType models.LedgerEntryType, ref LedgerRef) (*models.PointsLedgerEntry, error) {
	if ref.DonationID == nil && ref.RedemptionID == nil {
		return nil, nil
	}

	query := tx.Where("donor_id = ? AND transaction_type = ?", donorID, entryType)
	if ref.DonationID != nil {
		query = query.Where("related_donation_id = ?", *ref.DonationID)
	}
	if ref.RedemptionID != nil {
		query = query.Where("related_redemption_id = ?", *ref.RedemptionID)
	}

	var existing models.PointsLedgerEntry
	err := query.First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &existing, nil
}
