package services

import "errors"

// Typed failures for the points/voucher engine. Handlers translate these
// to HTTP statuses with errors.Is; none of them are swallowed internally
// because every one of them gates a balance change.
var (
	ErrRewardNotFound         = errors.New("reward not found")
	ErrRewardInactive         = errors.New("reward is not active")
	ErrInsufficientPoints     = errors.New("insufficient points")
	ErrVoucherNotFound        = errors.New("voucher not found")
	ErrAlreadyUsed            = errors.New("voucher already used")
	ErrVoucherExpired         = errors.New("voucher expired")
	ErrNotOwner               = errors.New("voucher belongs to another donor")
	ErrAlreadyVerified        = errors.New("verified vouchers cannot be deleted")
	ErrConcurrentModification = errors.New("balance changed concurrently, retries exhausted")

	// ErrRollbackFailed marks the one path that can leave inconsistent
	// state: a redemption compensation that itself failed. It must be
	// reconciled manually, never retried blindly.
	ErrRollbackFailed = errors.New("redemption rollback failed, manual reconciliation required")
)
