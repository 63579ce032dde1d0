package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"lifedrop-backend/config"
	"lifedrop-backend/models"
	"lifedrop-backend/utils"

	"gorm.io/gorm"
)

// ReclaimSummary reports one sweep. Per-row failures are collected here
// rather than aborting the sweep; one stuck voucher must not hold the
// rest of the refunds hostage.
type ReclaimSummary struct {
	RefundedCount int      `json:"refunded_count"`
	PurgedCount   int      `json:"purged_count"`
	Errors        []string `json:"errors,omitempty"`
}

// ReclaimerService finalizes vouchers nobody verified in time: refund the
// points, mark the row expired, and eventually purge old expired rows.
type ReclaimerService struct {
	DB       *gorm.DB
	Ledger   pointsLedger
	Settings *config.RewardsSettings
	Events   *utils.ActivityHub
}

func NewReclaimerService(db *gorm.DB, ledger pointsLedger, settings *config.RewardsSettings, events *utils.ActivityHub) *ReclaimerService {
	return &ReclaimerService{DB: db, Ledger: ledger, Settings: settings, Events: events}
}

// ReclaimExpired runs one sweep. Safe to re-run at any point, including
// after a crash mid-sweep: only pending rows are selected, refund credits
// are idempotent per redemption, and the status flip is conditional.
func (s *ReclaimerService) ReclaimExpired() ReclaimSummary {
	var summary ReclaimSummary
	now := time.Now()

	// Past-due rows still pending, plus rows the verifier already marked
	// expired on access but that have no refund yet. Refunded expired rows
	// are excluded so retained history is not re-processed every sweep.
	var due []models.Redemption
	if err := s.DB.Where("expires_at < ?", now).
		Where(s.DB.Where("status = ?", models.RedemptionStatusPending).
			Or("status = ? AND NOT EXISTS (SELECT 1 FROM points_ledger_entries e WHERE e.related_redemption_id = redemptions.id AND e.transaction_type = ?)",
				models.RedemptionStatusExpired, models.EntryRefunded)).
		Find(&due).Error; err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("selecting past-due vouchers: %v", err))
		return summary
	}

	for _, red := range due {
		if err := s.reclaimOne(red); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("voucher %s: %v", red.VoucherCode, err))
			continue
		}
		summary.RefundedCount++
	}

	purged, err := s.purgeOldExpired(now)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("purging expired vouchers: %v", err))
	}
	summary.PurgedCount = purged

	if summary.RefundedCount > 0 || summary.PurgedCount > 0 || len(summary.Errors) > 0 {
		log.Printf("Expiry sweep: refunded %d, purged %d, %d errors",
			summary.RefundedCount, summary.PurgedCount, len(summary.Errors))
	}

	return summary
}

// reclaimOne refunds and expires a single past-due voucher. The credit
// goes first so a crash in between leaves the row pending and the next
// sweep retries; the idempotent credit makes that retry a no-op.
func (s *ReclaimerService) reclaimOne(red models.Redemption) error {
	redID := red.ID
	if _, err := s.Ledger.Credit(red.DonorID, red.PointsSpent, models.EntryRefunded,
		fmt.Sprintf("Refund for expired voucher %s", red.VoucherCode),
		LedgerRef{RedemptionID: &redID}); err != nil {
		return fmt.Errorf("refund failed: %w", err)
	}

	res := s.DB.Model(&models.Redemption{}).
		Where("id = ? AND status = ?", red.ID, models.RedemptionStatusPending).
		Update("status", models.RedemptionStatusExpired)
	if res.Error != nil {
		return fmt.Errorf("marking expired failed: %w", res.Error)
	}
	// RowsAffected == 0 means the row was already marked expired by the
	// verifier, or the owner deleted it concurrently; the refund above and
	// the delete-path refund share an idempotency key, so the points still
	// moved exactly once.

	s.Events.Publish(utils.ActivityEvent{
		Type:        "refunded",
		DonorID:     red.DonorID,
		Points:      red.PointsSpent,
		VoucherCode: red.VoucherCode,
	})
	return nil
}

// purgeOldExpired permanently deletes expired rows past the retention
// window. Data hygiene only; no balance effects.
func (s *ReclaimerService) purgeOldExpired(now time.Time) (int, error) {
	cutoff := now.Add(-s.Settings.ExpiredRetention())
	res := s.DB.Where("status = ? AND expires_at < ?", models.RedemptionStatusExpired, cutoff).
		Delete(&models.Redemption{})
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

// Run sweeps on the configured cadence until ctx is cancelled. The
// interval is re-read each tick so a settings reload takes effect without
// a restart.
func (s *ReclaimerService) Run(ctx context.Context) {
	interval := s.Settings.SweepInterval()
	timer := time.NewTimer(interval)
	defer timer.Stop()

	log.Printf("Expiry reclaimer running every %s", interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("Expiry reclaimer stopped")
			return
		case <-timer.C:
			s.ReclaimExpired()
			timer.Reset(s.Settings.SweepInterval())
		}
	}
}
