package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"lifedrop-backend/config"
	"lifedrop-backend/models"
	"lifedrop-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// codeGenAttempts bounds voucher-code collision retries. With a 27-symbol
// 6-character suffix a collision is already vanishingly unlikely.
const codeGenAttempts = 5

// pointsLedger is the slice of LedgerService the engine needs. Keeping it
// an interface lets tests drive the rollback path with a failing fake.
type pointsLedger interface {
	Credit(donorID uuid.UUID, points int, entryType models.LedgerEntryType, description string, ref LedgerRef) (*models.PointsLedgerEntry, error)
	Debit(donorID uuid.UUID, points int, entryType models.LedgerEntryType, description string, ref LedgerRef) (*models.PointsLedgerEntry, error)
	Balance(donorID uuid.UUID) (*models.DonorPointsAccount, error)
}

// RedemptionService turns points into pending vouchers and back. The
// voucher row and the ledger are separate aggregates, so redemption is a
// saga: create the pending row, debit the ledger, and compensate by
// deleting the row if the debit fails.
type RedemptionService struct {
	DB       *gorm.DB
	Ledger   pointsLedger
	Settings *config.RewardsSettings
	Events   *utils.ActivityHub
}

func NewRedemptionService(db *gorm.DB, ledger pointsLedger, settings *config.RewardsSettings, events *utils.ActivityHub) *RedemptionService {
	return &RedemptionService{DB: db, Ledger: ledger, Settings: settings, Events: events}
}

// redemptionAttempt tracks which saga steps completed so the compensation
// knows exactly what to undo. Relying on bare error unwinding would lose
// that information on partial failure.
type redemptionAttempt struct {
	redemption *models.Redemption
	created    bool
	debited    bool
}

// Redeem exchanges the donor's points for a pending voucher on the given
// reward and returns the voucher with its code and expiry.
func (s *RedemptionService) Redeem(donorID, rewardID uuid.UUID) (*models.Redemption, error) {
	var reward models.Reward
	if err := s.DB.Where("id = ?", rewardID).First(&reward).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRewardNotFound
		}
		return nil, err
	}
	if !reward.IsActive {
		return nil, ErrRewardInactive
	}

	// Early balance check for a clean error before any row is written.
	// The ledger re-checks atomically during the debit, so a race here
	// only costs a created-then-compensated voucher, never a negative
	// balance.
	acct, err := s.Ledger.Balance(donorID)
	if err != nil {
		return nil, err
	}
	if acct.TotalPoints < reward.PointsRequired {
		return nil, ErrInsufficientPoints
	}

	code, err := s.generateUniqueCode()
	if err != nil {
		return nil, err
	}

	attempt := redemptionAttempt{
		redemption: &models.Redemption{
			ID:          uuid.New(),
			DonorID:     donorID,
			RewardID:    rewardID,
			VoucherCode: code,
			PointsSpent: reward.PointsRequired,
			Status:      models.RedemptionStatusPending,
			ExpiresAt:   time.Now().Add(s.Settings.VoucherTTL()),
		},
	}

	if err := s.DB.Create(attempt.redemption).Error; err != nil {
		return nil, fmt.Errorf("failed to create redemption: %w", err)
	}
	attempt.created = true

	_, err = s.Ledger.Debit(donorID, reward.PointsRequired, models.EntryRedeemed,
		fmt.Sprintf("Redeemed %q", reward.Title),
		LedgerRef{RedemptionID: &attempt.redemption.ID})
	if err != nil {
		return nil, s.compensate(&attempt, err)
	}
	attempt.debited = true

	s.Events.Publish(utils.ActivityEvent{
		Type:        "redeemed",
		DonorID:     donorID,
		Points:      -reward.PointsRequired,
		VoucherCode: code,
	})

	attempt.redemption.Reward = reward
	return attempt.redemption, nil
}

// compensate undoes the completed saga steps after a debit failure. The
// donor must end up with neither a voucher they never paid for nor a
// debit for a voucher that does not exist.
func (s *RedemptionService) compensate(attempt *redemptionAttempt, cause error) error {
	if attempt.created && !attempt.debited {
		if delErr := s.DB.Where("id = ?", attempt.redemption.ID).Delete(&models.Redemption{}).Error; delErr != nil {
			log.Printf("RECONCILE: failed to roll back redemption %s after debit failure (%v): %v",
				attempt.redemption.ID, cause, delErr)
			return fmt.Errorf("%w: redemption %s: %v (debit failure: %v)",
				ErrRollbackFailed, attempt.redemption.ID, delErr, cause)
		}
	}
	return cause
}

// DeleteVoucher removes a still-pending voucher owned by the donor and
// refunds its points. The delete is conditional on status=pending, so of
// two concurrent deletes only one refunds; the loser sees not-found.
func (s *RedemptionService) DeleteVoucher(donorID, redemptionID uuid.UUID) (int, error) {
	var red models.Redemption
	if err := s.DB.Where("id = ?", redemptionID).First(&red).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrVoucherNotFound
		}
		return 0, err
	}
	if red.DonorID != donorID {
		return 0, ErrNotOwner
	}
	if red.Status == models.RedemptionStatusVerified {
		return 0, ErrAlreadyVerified
	}
	if red.Status != models.RedemptionStatusPending {
		// Expired or cancelled rows belong to the sweep now.
		return 0, ErrVoucherNotFound
	}

	res := s.DB.Where("id = ? AND status = ?", redemptionID, models.RedemptionStatusPending).
		Delete(&models.Redemption{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost the race: verified, expired or deleted since the read.
		var current models.Redemption
		if err := s.DB.Where("id = ?", redemptionID).First(&current).Error; err == nil &&
			current.Status == models.RedemptionStatusVerified {
			return 0, ErrAlreadyVerified
		}
		return 0, ErrVoucherNotFound
	}

	// The refund credit is keyed on the redemption id, so even a crash
	// and retry (or a racing expiry sweep) refunds at most once.
	if _, err := s.Ledger.Credit(donorID, red.PointsSpent, models.EntryRefunded,
		fmt.Sprintf("Refund for deleted voucher %s", red.VoucherCode),
		LedgerRef{RedemptionID: &red.ID}); err != nil {
		log.Printf("RECONCILE: voucher %s deleted but refund of %d points failed: %v",
			red.VoucherCode, red.PointsSpent, err)
		return 0, err
	}

	s.Events.Publish(utils.ActivityEvent{
		Type:        "refunded",
		DonorID:     donorID,
		Points:      red.PointsSpent,
		VoucherCode: red.VoucherCode,
	})

	return red.PointsSpent, nil
}

// VouchersFor lists a donor's redemptions, newest first.
func (s *RedemptionService) VouchersFor(donorID uuid.UUID) ([]models.Redemption, error) {
	var reds []models.Redemption
	if err := s.DB.Preload("Reward").Where("donor_id = ?", donorID).
		Order("created_at DESC").Find(&reds).Error; err != nil {
		return nil, err
	}
	return reds, nil
}

func (s *RedemptionService) generateUniqueCode() (string, error) {
	for i := 0; i < codeGenAttempts; i++ {
		code := utils.NewVoucherCode()
		var n int64
		if err := s.DB.Model(&models.Redemption{}).Where("voucher_code = ?", code).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique voucher code after %d attempts", codeGenAttempts)
}
