package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/custodix/recoveryd/internal/middleware"
	"github.com/custodix/recoveryd/internal/models"
	"github.com/go-chi/chi/v5"
)

// AccountService defines the account enrollment operations required by the
// AccountHandler.
type AccountService interface {
	// CreateAccount enrolls a custody account owned by the caller.
	CreateAccount(ctx context.Context, caller, accountID string) error
	// GetAccount returns the account record for the id.
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
}

// CredentialService defines the commitment operations required by the
// AccountHandler.
type CredentialService interface {
	// SetBiometricHash overwrites the account's commitment; owner only.
	SetBiometricHash(ctx context.Context, caller, accountID, hash string) error
	// VerifyBiometricHash reports whether the candidate matches the
	// stored commitment.
	VerifyBiometricHash(ctx context.Context, accountID, hash string) (bool, error)
}

// GuardianService defines the guardian registry operations required by the
// AccountHandler.
type GuardianService interface {
	// AddGuardian registers a guardian; owner only, capped at two.
	AddGuardian(ctx context.Context, caller, accountID, guardian, handle string) error
	// RemoveGuardian deletes a guardian; owner only.
	RemoveGuardian(ctx context.Context, caller, accountID, guardian string) error
	// Guardians returns the guardian set in insertion order.
	Guardians(ctx context.Context, accountID string) ([]models.Guardian, error)
}

// AccountHandler handles the custody account surface: enrollment, the
// biometric commitment, and the guardian registry.
type AccountHandler struct {
	AccountService    AccountService
	CredentialService CredentialService
	GuardianService   GuardianService
}

// Create handles POST /api/accounts. The caller becomes the owner.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetPrincipalFromContext(r.Context())

	var req struct {
		Account string `json:"account"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Account == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.AccountService.CreateAccount(r.Context(), caller, req.Account); err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"account": req.Account,
		"owner":   caller,
	})
}

// Get handles GET /api/accounts/{accountID}.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	acc, err := h.AccountService.GetAccount(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(acc)
}

// SetBiometric handles POST /api/accounts/{accountID}/biometric.
// It expects a JSON body with a hex-encoded 32-byte "hash".
func (h *AccountHandler) SetBiometric(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetPrincipalFromContext(r.Context())
	accountID := chi.URLParam(r, "accountID")

	var req struct {
		Hash string `json:"hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Hash == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.CredentialService.SetBiometricHash(r.Context(), caller, accountID, req.Hash); err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// VerifyBiometric handles POST /api/accounts/{accountID}/biometric/verify.
// A mismatch is a normal {"match": false} response, not an error.
func (h *AccountHandler) VerifyBiometric(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var req struct {
		Hash string `json:"hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	match, err := h.CredentialService.VerifyBiometricHash(r.Context(), accountID, req.Hash)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"match": match})
}

// AddGuardian handles POST /api/accounts/{accountID}/guardians.
func (h *AccountHandler) AddGuardian(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetPrincipalFromContext(r.Context())
	accountID := chi.URLParam(r, "accountID")

	var req struct {
		Guardian string `json:"guardian"`
		Handle   string `json:"handle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Guardian == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.GuardianService.AddGuardian(r.Context(), caller, accountID, req.Guardian, req.Handle); err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// RemoveGuardian handles DELETE /api/accounts/{accountID}/guardians/{guardianID}.
func (h *AccountHandler) RemoveGuardian(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetPrincipalFromContext(r.Context())
	accountID := chi.URLParam(r, "accountID")
	guardianID := chi.URLParam(r, "guardianID")

	if err := h.GuardianService.RemoveGuardian(r.Context(), caller, accountID, guardianID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ListGuardians handles GET /api/accounts/{accountID}/guardians.
func (h *AccountHandler) ListGuardians(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	guardians, err := h.GuardianService.Guardians(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if guardians == nil {
		guardians = []models.Guardian{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(guardians)
}
