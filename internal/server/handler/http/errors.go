package http

import (
	"errors"
	"net/http"

	"github.com/custodix/recoveryd/internal/models"
)

// writeServiceError maps each domain error kind to a specific HTTP status.
// Unknown errors are masked as a plain internal error.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, models.ErrAccountNotFound),
		errors.Is(err, models.ErrGuardianNotFound),
		errors.Is(err, models.ErrRecoveryNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrAccountExists),
		errors.Is(err, models.ErrGuardianAlreadyPresent),
		errors.Is(err, models.ErrGuardianLimitExceeded),
		errors.Is(err, models.ErrRecoveryAlreadyLive),
		errors.Is(err, models.ErrThresholdNotMet),
		errors.Is(err, models.ErrTimelockNotElapsed),
		errors.Is(err, models.ErrRequestExpired):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, models.ErrInvalidCommitment):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrInsufficientFee):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
