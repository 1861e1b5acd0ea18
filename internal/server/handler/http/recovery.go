package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/custodix/recoveryd/internal/middleware"
	"github.com/custodix/recoveryd/internal/models"
	"github.com/go-chi/chi/v5"
)

// RecoveryService defines the recovery lifecycle operations required by the
// RecoveryHandler.
type RecoveryService interface {
	// Initiate opens a recovery request proposing a new owner.
	Initiate(ctx context.Context, caller, accountID, newOwner string, ownerUnreachable bool) (*models.RecoveryRequest, error)
	// Approve records the caller's concurrence with the live proposal.
	Approve(ctx context.Context, caller, accountID, newOwner string) error
	// Execute applies the ownership change once timelock and threshold hold.
	Execute(ctx context.Context, caller, accountID, newOwner string) error
	// Cancel dismisses the live request; owner only.
	Cancel(ctx context.Context, caller, accountID string) error
	// CheckIn refreshes owner liveness and expires any live request.
	CheckIn(ctx context.Context, caller, accountID string) error
	// Status returns the most recent request with lazy expiry applied.
	Status(ctx context.Context, accountID string) (*models.RecoveryRequest, error)
}

// RecoveryHandler handles the recovery request lifecycle endpoints.
type RecoveryHandler struct {
	RecoveryService RecoveryService
}

// recoveryBody is the shared JSON payload for lifecycle mutations that
// identify a proposal by its new owner.
type recoveryBody struct {
	NewOwner         string `json:"new_owner"`
	OwnerUnreachable bool   `json:"owner_unreachable"`
}

// Initiate handles POST /api/accounts/{accountID}/recovery.
func (h *RecoveryHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetPrincipalFromContext(r.Context())
	accountID := chi.URLParam(r, "accountID")

	var req recoveryBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewOwner == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	rec, err := h.RecoveryService.Initiate(r.Context(), caller, accountID, req.NewOwner, req.OwnerUnreachable)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(rec)
}

// Approve handles POST /api/accounts/{accountID}/recovery/approve.
func (h *RecoveryHandler) Approve(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetPrincipalFromContext(r.Context())
	accountID := chi.URLParam(r, "accountID")

	var req recoveryBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewOwner == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.RecoveryService.Approve(r.Context(), caller, accountID, req.NewOwner); err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Execute handles POST /api/accounts/{accountID}/recovery/execute.
func (h *RecoveryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetPrincipalFromContext(r.Context())
	accountID := chi.URLParam(r, "accountID")

	var req recoveryBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewOwner == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.RecoveryService.Execute(r.Context(), caller, accountID, req.NewOwner); err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "executed", "owner": req.NewOwner})
}

// Cancel handles POST /api/accounts/{accountID}/recovery/cancel.
func (h *RecoveryHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetPrincipalFromContext(r.Context())
	accountID := chi.URLParam(r, "accountID")

	if err := h.RecoveryService.Cancel(r.Context(), caller, accountID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "cancelled"})
}

// CheckIn handles POST /api/accounts/{accountID}/checkin.
func (h *RecoveryHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetPrincipalFromContext(r.Context())
	accountID := chi.URLParam(r, "accountID")

	if err := h.RecoveryService.CheckIn(r.Context(), caller, accountID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Status handles GET /api/accounts/{accountID}/recovery.
func (h *RecoveryHandler) Status(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	rec, err := h.RecoveryService.Status(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rec)
}
