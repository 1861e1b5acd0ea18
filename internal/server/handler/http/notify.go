package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/custodix/recoveryd/internal/middleware"
	"github.com/custodix/recoveryd/internal/models"
	"github.com/go-chi/chi/v5"
)

// FeeService defines the fee gate operation required by the FeeHandler.
type FeeService interface {
	// CollectFee accepts a payment for the account if it meets the minimum.
	CollectFee(ctx context.Context, caller, accountID string, amount int64) (*models.FeePayment, error)
}

// NotificationService defines the notification request issuer operation
// required by the NotificationHandler.
type NotificationService interface {
	// RequestNotification issues a fresh request id for the account.
	RequestNotification(ctx context.Context, caller, accountID, message string) (string, error)
}

// FeeHandler handles fee collection requests.
type FeeHandler struct {
	FeeService FeeService
}

// Collect handles POST /api/accounts/{accountID}/fee. Amounts are in base
// units; anything below the configured minimum is rejected up front.
func (h *FeeHandler) Collect(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetPrincipalFromContext(r.Context())
	accountID := chi.URLParam(r, "accountID")

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	payment, err := h.FeeService.CollectFee(r.Context(), caller, accountID, req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(payment)
}

// NotificationHandler handles out-of-band notification requests.
type NotificationHandler struct {
	NotificationService NotificationService
}

// Request handles POST /api/accounts/{accountID}/notifications and returns
// the issued request id.
func (h *NotificationHandler) Request(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetPrincipalFromContext(r.Context())
	accountID := chi.URLParam(r, "accountID")

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	id, err := h.NotificationService.RequestNotification(r.Context(), caller, accountID, req.Message)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"request_id": id})
}
