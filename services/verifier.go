package services

import (
	"errors"
	"time"

	"lifedrop-backend/models"
	"lifedrop-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VerifyResult is what a merchant terminal needs at point of sale: who the
// voucher belongs to, what it buys, and which discount bracket to apply.
// The tier reflects the donor's balance at verification time, which may
// have drifted since redemption.
type VerifyResult struct {
	Redemption     *models.Redemption     `json:"redemption"`
	Reward         models.Reward          `json:"reward"`
	Donor          models.User            `json:"customer"`
	Tier           models.TierDefinition  `json:"tier"`
	CurrentPoints  int                    `json:"current_points"`
	RewardInactive bool                   `json:"reward_inactive"`
}

// PreviewResult is a read-only validity snapshot shown before a merchant
// commits to verifying.
type PreviewResult struct {
	VoucherCode string                  `json:"voucher_code"`
	Status      models.RedemptionStatus `json:"status"`
	Valid       bool                    `json:"valid"`
	Reason      string                  `json:"reason,omitempty"`
	Reward      models.Reward           `json:"reward"`
	ExpiresAt   time.Time               `json:"expires_at"`
}

// VerifierService consumes vouchers on behalf of merchants.
type VerifierService struct {
	DB     *gorm.DB
	Ledger pointsLedger
	Events *utils.ActivityHub
}

func NewVerifierService(db *gorm.DB, ledger pointsLedger, events *utils.ActivityHub) *VerifierService {
	return &VerifierService{DB: db, Ledger: ledger, Events: events}
}

// withReward preloads the redemption's reward including soft-deleted
// ones: a voucher already paid for stays honorable even after the reward
// is pulled from the catalog.
func withReward(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

// Verify consumes the voucher exactly once. The pending->verified flip is
// a conditional update guarded on the current status, so of two racing
// calls only one succeeds; the loser gets ErrAlreadyUsed together with
// the winning verification's audit fields on the returned redemption.
func (s *VerifierService) Verify(code string, merchantID uuid.UUID) (*VerifyResult, error) {
	var red models.Redemption
	if err := s.DB.Preload("Reward", withReward).Preload("Donor").Where("voucher_code = ?", code).First(&red).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}

	if red.Status == models.RedemptionStatusVerified {
		return &VerifyResult{Redemption: &red, Reward: red.Reward, Donor: red.Donor}, ErrAlreadyUsed
	}

	if time.Now().After(red.ExpiresAt) {
		// Lazy expiry: mark the row so later reads short-circuit. No
		// refund here - that is the sweep's job, which keys off rows
		// still pending. Conditional and therefore safe to re-run.
		if err := s.DB.Model(&models.Redemption{}).
			Where("id = ? AND status = ?", red.ID, models.RedemptionStatusPending).
			Update("status", models.RedemptionStatusExpired).Error; err != nil {
			return nil, err
		}
		return &VerifyResult{Redemption: &red, Reward: red.Reward, Donor: red.Donor}, ErrVoucherExpired
	}

	now := time.Now()
	res := s.DB.Model(&models.Redemption{}).
		Where("id = ? AND status = ?", red.ID, models.RedemptionStatusPending).
		Updates(map[string]interface{}{
			"status":                  models.RedemptionStatusVerified,
			"verified_at":             now,
			"verified_by_merchant_id": merchantID,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Someone else won the race. Re-read to report the actual state.
		var current models.Redemption
		if err := s.DB.Preload("Reward", withReward).Preload("Donor").Where("id = ?", red.ID).First(&current).Error; err != nil {
			return nil, ErrVoucherNotFound
		}
		if current.Status == models.RedemptionStatusExpired {
			return &VerifyResult{Redemption: &current, Reward: current.Reward, Donor: current.Donor}, ErrVoucherExpired
		}
		return &VerifyResult{Redemption: &current, Reward: current.Reward, Donor: current.Donor}, ErrAlreadyUsed
	}

	red.Status = models.RedemptionStatusVerified
	red.VerifiedAt = &now
	red.VerifiedByMerchantID = &merchantID

	acct, err := s.Ledger.Balance(red.DonorID)
	if err != nil {
		return nil, err
	}
	tier, err := TierFor(s.DB, acct.TotalPoints)
	if err != nil {
		return nil, err
	}

	s.Events.Publish(utils.ActivityEvent{
		Type:        "verified",
		DonorID:     red.DonorID,
		VoucherCode: red.VoucherCode,
	})

	return &VerifyResult{
		Redemption:     &red,
		Reward:         red.Reward,
		Donor:          red.Donor,
		Tier:           tier,
		CurrentPoints:  acct.TotalPoints,
		RewardInactive: !red.Reward.IsActive,
	}, nil
}

// Preview reports a voucher's validity without changing any state.
func (s *VerifierService) Preview(code string) (*PreviewResult, error) {
	var red models.Redemption
	if err := s.DB.Preload("Reward", withReward).Where("voucher_code = ?", code).First(&red).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}

	result := &PreviewResult{
		VoucherCode: red.VoucherCode,
		Status:      red.Status,
		Reward:      red.Reward,
		ExpiresAt:   red.ExpiresAt,
	}

	switch {
	case red.Status == models.RedemptionStatusVerified:
		result.Reason = "already verified"
	case red.Status == models.RedemptionStatusExpired:
		result.Reason = "expired"
	case time.Now().After(red.ExpiresAt):
		// Row not yet swept; report what a verify call would say.
		result.Status = models.RedemptionStatusExpired
		result.Reason = "expired"
	case red.Status == models.RedemptionStatusPending:
		result.Valid = true
	default:
		result.Reason = string(red.Status)
	}

	return result, nil
}
