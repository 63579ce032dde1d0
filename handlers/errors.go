package handlers

import (
	"errors"
	"net/http"

	"lifedrop-backend/services"
)

// serviceErrorStatus maps the engine's typed failures to HTTP statuses.
// Unknown errors fall through as 500 without leaking internals.
func serviceErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrRewardNotFound):
		return http.StatusNotFound, "Reward not found"
	case errors.Is(err, services.ErrRewardInactive):
		return http.StatusConflict, "Reward is no longer active"
	case errors.Is(err, services.ErrInsufficientPoints):
		return http.StatusConflict, "Insufficient points"
	case errors.Is(err, services.ErrVoucherNotFound):
		return http.StatusNotFound, "Voucher not found"
	case errors.Is(err, services.ErrAlreadyUsed):
		return http.StatusConflict, "Voucher already used"
	case errors.Is(err, services.ErrVoucherExpired):
		return http.StatusGone, "Voucher expired"
	case errors.Is(err, services.ErrNotOwner):
		return http.StatusForbidden, "Voucher belongs to another donor"
	case errors.Is(err, services.ErrAlreadyVerified):
		return http.StatusConflict, "Verified vouchers cannot be deleted"
	case errors.Is(err, services.ErrConcurrentModification):
		return http.StatusConflict, "Balance changed concurrently, please retry"
	case errors.Is(err, services.ErrRollbackFailed):
		return http.StatusInternalServerError, "Redemption failed and needs manual review"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}
