package services

import (
	"fmt"
	"testing"
	"time"

	"lifedrop-backend/models"

	"github.com/google/uuid"
)

// failingCreditLedger rejects every credit, simulating a refund outage
// during an expiry sweep.
type failingCreditLedger struct {
	*LedgerService
}

func (f *failingCreditLedger) Credit(donorID uuid.UUID, points int, entryType models.LedgerEntryType, description string, ref LedgerRef) (*models.PointsLedgerEntry, error) {
	return nil, fmt.Errorf("simulated refund outage")
}

func TestReclaimExpiredRefundsAndMarks(t *testing.T) {
	db := freshDB()
	ledger, redemptions, _, reclaimer, _ := newEngine(t, db)
	donor := seedDonor(db, "reclaim@test.com")
	reward := seedReward(db, "Free Coffee", 100, true)
	earnPoints(t, ledger, donor.ID, 250)

	red, err := redemptions.Redeem(donor.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	// 25 hours pass without anyone verifying the voucher.
	expireVoucher(db, red.ID, 25*time.Hour)

	summary := reclaimer.ReclaimExpired()
	if len(summary.Errors) != 0 {
		t.Fatalf("unexpected sweep errors: %v", summary.Errors)
	}
	if summary.RefundedCount != 1 {
		t.Errorf("expected 1 refund, got %d", summary.RefundedCount)
	}

	acct, _ := ledger.Balance(donor.ID)
	if acct.TotalPoints != 250 {
		t.Errorf("expected balance restored to 250, got %d", acct.TotalPoints)
	}
	if sum := ledgerSum(db, donor.ID); sum != 250 {
		t.Errorf("ledger sum %d does not match 250", sum)
	}

	var current models.Redemption
	db.Where("id = ?", red.ID).First(&current)
	if current.Status != models.RedemptionStatusExpired {
		t.Errorf("expected expired status, got %s", current.Status)
	}
}

func TestReclaimIsIdempotent(t *testing.T) {
	db := freshDB()
	ledger, redemptions, _, reclaimer, _ := newEngine(t, db)
	donor := seedDonor(db, "rerun@test.com")
	reward := seedReward(db, "Free Coffee", 100, true)
	earnPoints(t, ledger, donor.ID, 250)

	red, err := redemptions.Redeem(donor.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	expireVoucher(db, red.ID, 25*time.Hour)

	reclaimer.ReclaimExpired()
	second := reclaimer.ReclaimExpired()

	// The second sweep finds no pending past-due rows and refunds nothing.
	if second.RefundedCount != 0 {
		t.Errorf("expected 0 refunds on re-run, got %d", second.RefundedCount)
	}
	acct, _ := ledger.Balance(donor.ID)
	if acct.TotalPoints != 250 {
		t.Errorf("expected balance 250 after re-run, got %d", acct.TotalPoints)
	}
}

func TestReclaimRefundsLazilyExpiredVouchers(t *testing.T) {
	db := freshDB()
	ledger, redemptions, verifier, reclaimer, _ := newEngine(t, db)
	donor := seedDonor(db, "lazy@test.com")
	merchant := seedDonor(db, "pos8@test.com")
	reward := seedReward(db, "Free Coffee", 100, true)
	earnPoints(t, ledger, donor.ID, 250)

	red, err := redemptions.Redeem(donor.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	expireVoucher(db, red.ID, time.Hour)

	// A merchant tries the code after expiry; the verifier marks the row
	// expired without refunding.
	if _, err := verifier.Verify(red.VoucherCode, merchant.ID); err == nil {
		t.Fatal("expected verification of an expired voucher to fail")
	}

	// The sweep must still pick the row up and refund it.
	summary := reclaimer.ReclaimExpired()
	if summary.RefundedCount != 1 {
		t.Fatalf("expected 1 refund for the lazily expired voucher, got %d", summary.RefundedCount)
	}
	acct, _ := ledger.Balance(donor.ID)
	if acct.TotalPoints != 250 {
		t.Errorf("expected balance restored to 250, got %d", acct.TotalPoints)
	}

	// And it stays refunded exactly once on the next sweep.
	if again := reclaimer.ReclaimExpired(); again.RefundedCount != 0 {
		t.Errorf("expected 0 refunds on re-run, got %d", again.RefundedCount)
	}
}

func TestReclaimSkipsLiveAndVerifiedVouchers(t *testing.T) {
	db := freshDB()
	ledger, redemptions, verifier, reclaimer, _ := newEngine(t, db)
	seedTiers(db)
	donor := seedDonor(db, "mixed@test.com")
	merchant := seedDonor(db, "pos7@test.com")
	reward := seedReward(db, "Free Coffee", 100, true)
	earnPoints(t, ledger, donor.ID, 500)

	live, err := redemptions.Redeem(donor.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	used, err := redemptions.Redeem(donor.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if _, err := verifier.Verify(used.VoucherCode, merchant.ID); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	summary := reclaimer.ReclaimExpired()
	if summary.RefundedCount != 0 {
		t.Errorf("expected no refunds, got %d", summary.RefundedCount)
	}

	var current models.Redemption
	db.Where("id = ?", live.ID).First(&current)
	if current.Status != models.RedemptionStatusPending {
		t.Errorf("live voucher must stay pending, got %s", current.Status)
	}
	acct, _ := ledger.Balance(donor.ID)
	if acct.TotalPoints != 300 {
		t.Errorf("expected balance 300 (two debits, no refunds), got %d", acct.TotalPoints)
	}
}

func TestReclaimPurgesOldExpiredRows(t *testing.T) {
	db := freshDB()
	ledger, redemptions, _, reclaimer, settings := newEngine(t, db)
	donor := seedDonor(db, "purge@test.com")
	reward := seedReward(db, "Free Coffee", 100, true)
	earnPoints(t, ledger, donor.ID, 500)

	old, err := redemptions.Redeem(donor.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	recent, err := redemptions.Redeem(donor.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	// One voucher expired beyond the retention window, one just past due.
	expireVoucher(db, old.ID, settings.ExpiredRetention()+time.Hour)
	expireVoucher(db, recent.ID, time.Hour)

	first := reclaimer.ReclaimExpired()
	if first.RefundedCount != 2 {
		t.Fatalf("expected 2 refunds, got %d", first.RefundedCount)
	}
	// The old row was refunded and marked expired in the same sweep; the
	// purge step then removes it because its expiry predates the cutoff.
	if first.PurgedCount != 1 {
		t.Errorf("expected 1 purge, got %d", first.PurgedCount)
	}

	var count int64
	db.Model(&models.Redemption{}).Where("id = ?", old.ID).Count(&count)
	if count != 0 {
		t.Error("expected the old expired row to be purged")
	}
	db.Model(&models.Redemption{}).Where("id = ?", recent.ID).Count(&count)
	if count != 1 {
		t.Error("expected the recently expired row to be retained")
	}

	// Purging is bookkeeping only; the refunds already restored the balance.
	acct, _ := ledger.Balance(donor.ID)
	if acct.TotalPoints != 500 {
		t.Errorf("expected balance 500, got %d", acct.TotalPoints)
	}
}

func TestReclaimContinuesPastRowFailures(t *testing.T) {
	db := freshDB()
	settings := testSettings(t)
	ledger := NewLedgerService(db)
	redemptions := NewRedemptionService(db, ledger, settings, nil)
	donor := seedDonor(db, "partial@test.com")
	reward := seedReward(db, "Free Coffee", 100, true)
	earnPoints(t, ledger, donor.ID, 300)

	first, err := redemptions.Redeem(donor.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	second, err := redemptions.Redeem(donor.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	expireVoucher(db, first.ID, 25*time.Hour)
	expireVoucher(db, second.ID, 25*time.Hour)

	// A ledger that refuses every credit makes each row fail individually.
	broken := NewReclaimerService(db, &failingCreditLedger{ledger}, settings, nil)
	summary := broken.ReclaimExpired()
	if summary.RefundedCount != 0 {
		t.Errorf("expected 0 refunds through a broken ledger, got %d", summary.RefundedCount)
	}
	if len(summary.Errors) != 2 {
		t.Fatalf("expected an error per failed row, got %v", summary.Errors)
	}

	// Rows stay pending so a healthy sweep can pick them up again.
	var count int64
	db.Model(&models.Redemption{}).
		Where("donor_id = ? AND status = ?", donor.ID, models.RedemptionStatusPending).Count(&count)
	if count != 2 {
		t.Errorf("expected 2 pending rows awaiting retry, got %d", count)
	}

	healthy := NewReclaimerService(db, ledger, settings, nil)
	recovered := healthy.ReclaimExpired()
	if recovered.RefundedCount != 2 {
		t.Errorf("expected 2 refunds on recovery, got %d", recovered.RefundedCount)
	}
	acct, _ := ledger.Balance(donor.ID)
	if acct.TotalPoints != 300 {
		t.Errorf("expected balance restored to 300, got %d", acct.TotalPoints)
	}
}
