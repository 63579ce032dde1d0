package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"lifedrop-backend/models"

	"github.com/google/uuid"
)

func TestVerifySuccess(t *testing.T) {
	db := freshDB()
	ledger, redemptions, verifier, _, _ := newEngine(t, db)
	seedTiers(db)
	donor := seedDonor(db, "verify@test.com")
	merchant := seedDonor(db, "pos@test.com")
	reward := seedReward(db, "Free Coffee", 100, true)
	earnPoints(t, ledger, donor.ID, 250)

	red, err := redemptions.Redeem(donor.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	result, err := verifier.Verify(red.VoucherCode, merchant.ID)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if result.Redemption.Status != models.RedemptionStatusVerified {
		t.Errorf("expected verified status, got %s", result.Redemption.Status)
	}
	if result.Redemption.VerifiedAt == nil {
		t.Error("expected verified_at to be set")
	}
	if result.Redemption.VerifiedByMerchantID == nil || *result.Redemption.VerifiedByMerchantID != merchant.ID {
		t.Error("expected verifying merchant to be recorded")
	}

	// Verification consumes the voucher but never touches the balance:
	// the debit happened at redemption.
	if result.CurrentPoints != 150 {
		t.Errorf("expected current points 150, got %d", result.CurrentPoints)
	}
	// Tier reflects the post-redemption balance (150 -> Silver).
	if result.Tier.Name != "Silver" {
		t.Errorf("expected Silver tier at 150 points, got %s", result.Tier.Name)
	}
	if result.RewardInactive {
		t.Error("did not expect reward_inactive warning")
	}
}

func TestVerifyTierUsesCurrentBalance(t *testing.T) {
	db := freshDB()
	ledger, redemptions, verifier, _, _ := newEngine(t, db)
	seedTiers(db)
	donor := seedDonor(db, "drift@test.com")
	merchant := seedDonor(db, "pos2@test.com")
	reward := seedReward(db, "Free Coffee", 100, true)
	earnPoints(t, ledger, donor.ID, 150)

	red, err := redemptions.Redeem(donor.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	// Balance drifts upward between redemption and verification; the
	// merchant applies the discount for the balance at verify time.
	earnPoints(t, ledger, donor.ID, 300)

	result, err := verifier.Verify(red.VoucherCode, merchant.ID)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if result.CurrentPoints != 350 {
		t.Errorf("expected current points 350, got %d", result.CurrentPoints)
	}
	if result.Tier.Name != "Gold" {
		t.Errorf("expected Gold tier at 350 points, got %s", result.Tier.Name)
	}
}

func TestVerifyNotFound(t *testing.T) {
	db := freshDB()
	_, _, verifier, _, _ := newEngine(t, db)

	_, err := verifier.Verify("LD-20200101-XXXXXX", uuid.New())
	if !errors.Is(err, ErrVoucherNotFound) {
		t.Fatalf("expected ErrVoucherNotFound, got %v", err)
	}
}

func TestVerifyTwiceReportsAlreadyUsed(t *testing.T) {
	db := freshDB()
	ledger, redemptions, verifier, _, _ := newEngine(t, db)
	seedTiers(db)
	donor := seedDonor(db, "twice@test.com")
	first := seedDonor(db, "pos3@test.com")
	second := seedDonor(db, "pos4@test.com")
	reward := seedReward(db, "Free Coffee", 100, true)
	earnPoints(t, ledger, donor.ID, 200)

	red, err := redemptions.Redeem(donor.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if _, err := verifier.Verify(red.VoucherCode, first.ID); err != nil {
		t.Fatalf("first Verify failed: %v", err)
	}

	result, err := verifier.Verify(red.VoucherCode, second.ID)
	if !errors.Is(err, ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed, got %v", err)
	}
	// The loser still gets the original verification for audit display.
	if result == nil || result.Redemption == nil || result.Redemption.VerifiedAt == nil {
		t.Fatal("expected original verification details on AlreadyUsed")
	}
	if *result.Redemption.VerifiedByMerchantID != first.ID {
		t.Error("expected the first merchant on the audit record")
	}
}

func TestConcurrentVerifyExactlyOneWins(t *testing.T) {
	db := freshDB()
	ledger, redemptions, verifier, _, _ := newEngine(t, db)
	seedTiers(db)
	donor := seedDonor(db, "concurrent@test.com")
	merchantA := seedDonor(db, "posA@test.com")
	merchantB := seedDonor(db, "posB@test.com")
	reward := seedReward(db, "Free Coffee", 100, true)
	earnPoints(t, ledger, donor.ID, 250)

	red, err := redemptions.Redeem(donor.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, m := range []uuid.UUID{merchantA.ID, merchantB.ID} {
		wg.Add(1)
		go func(merchantID uuid.UUID) {
			defer wg.Done()
			_, err := verifier.Verify(red.VoucherCode, merchantID)
			errs <- err
		}(m)
	}
	wg.Wait()
	close(errs)

	var successes, alreadyUsed int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrAlreadyUsed):
			alreadyUsed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || alreadyUsed != 1 {
		t.Fatalf("expected exactly one success and one AlreadyUsed, got %d/%d", successes, alreadyUsed)
	}

	// Balance was debited at redemption only - verification never moves points.
	acct, _ := ledger.Balance(donor.ID)
	if acct.TotalPoints != 150 {
		t.Errorf("expected balance 150, got %d", acct.TotalPoints)
	}
}

func TestVerifyExpiredVoucher(t *testing.T) {
	db := freshDB()
	ledger, redemptions, verifier, _, _ := newEngine(t, db)
	donor := seedDonor(db, "late@test.com")
	merchant := seedDonor(db, "pos5@test.com")
	reward := seedReward(db, "Free Coffee", 100, true)
	earnPoints(t, ledger, donor.ID, 250)

	red, err := redemptions.Redeem(donor.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	expireVoucher(db, red.ID, time.Hour)

	_, err = verifier.Verify(red.VoucherCode, merchant.ID)
	if !errors.Is(err, ErrVoucherExpired) {
		t.Fatalf("expected ErrVoucherExpired, got %v", err)
	}

	// Lazy expiry marks the row but never refunds; that is the sweep's job.
	var current models.Redemption
	db.Where("id = ?", red.ID).First(&current)
	if current.Status != models.RedemptionStatusExpired {
		t.Errorf("expected expired status, got %s", current.Status)
	}
	acct, _ := ledger.Balance(donor.ID)
	if acct.TotalPoints != 150 {
		t.Errorf("expected balance still 150 (no refund on lazy expiry), got %d", acct.TotalPoints)
	}

	// Re-running is safe and reports the same failure.
	if _, err := verifier.Verify(red.VoucherCode, merchant.ID); !errors.Is(err, ErrVoucherExpired) {
		t.Fatalf("expected ErrVoucherExpired on re-run, got %v", err)
	}
}

func TestVerifyInactiveRewardWarns(t *testing.T) {
	db := freshDB()
	ledger, redemptions, verifier, _, _ := newEngine(t, db)
	seedTiers(db)
	donor := seedDonor(db, "warned@test.com")
	merchant := seedDonor(db, "pos6@test.com")
	reward := seedReward(db, "Soon Retired", 100, true)
	earnPoints(t, ledger, donor.ID, 200)

	red, err := redemptions.Redeem(donor.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	// Reward is deactivated after the voucher was issued.
	db.Model(&models.Reward{}).Where("id = ?", reward.ID).Update("is_active", false)

	result, err := verifier.Verify(red.VoucherCode, merchant.ID)
	if err != nil {
		t.Fatalf("Verify should still succeed for a paid voucher: %v", err)
	}
	if !result.RewardInactive {
		t.Error("expected reward_inactive warning")
	}
}

func TestPreviewDoesNotChangeState(t *testing.T) {
	db := freshDB()
	ledger, redemptions, verifier, _, _ := newEngine(t, db)
	donor := seedDonor(db, "preview@test.com")
	reward := seedReward(db, "Free Coffee", 100, true)
	earnPoints(t, ledger, donor.ID, 250)

	red, err := redemptions.Redeem(donor.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	result, err := verifier.Preview(red.VoucherCode)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if !result.Valid {
		t.Error("expected a pending voucher to preview as valid")
	}

	var current models.Redemption
	db.Where("id = ?", red.ID).First(&current)
	if current.Status != models.RedemptionStatusPending {
		t.Errorf("preview must not change status, got %s", current.Status)
	}

	// Previewing a past-due voucher reports expired without writing.
	expireVoucher(db, red.ID, time.Hour)
	result, err = verifier.Preview(red.VoucherCode)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if result.Valid || result.Status != models.RedemptionStatusExpired {
		t.Errorf("expected invalid/expired preview, got valid=%v status=%s", result.Valid, result.Status)
	}
	db.Where("id = ?", red.ID).First(&current)
	if current.Status != models.RedemptionStatusPending {
		t.Errorf("preview must not persist the expired status, got %s", current.Status)
	}
}
