// Package http provides the HTTP handlers and routing for the recovery
// module API.
package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/custodix/recoveryd/internal/certgen"
)

// PrincipalService defines the interface for principal enrollment
// required by the HTTP handlers.
type PrincipalService interface {
	// PrincipalExists checks whether the address is already enrolled.
	PrincipalExists(context.Context, string) (bool, error)
	// RegisterPrincipal enrolls a new principal address.
	RegisterPrincipal(context.Context, string) error
}

// RegisterHandler handles principal enrollment requests.
type RegisterHandler struct {
	// PrincipalService performs the underlying enrollment operations.
	PrincipalService PrincipalService
}

// RegisterRequest represents the JSON payload for principal enrollment.
type RegisterRequest struct {
	// Address is the principal address to enroll.
	Address string `json:"address"`
}

// Register handles principal enrollment requests.
// It expects a JSON body with a non-empty "address" field.
// If the address is not already enrolled, it enrolls it, generates a
// client certificate with the address as Common Name signed by the CA,
// and returns the PEM-encoded certificate and private key. The certificate
// stands in for the external credential-proof producer: presenting it
// is how a caller proves control of the address on later requests.
func (h *RegisterHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Address == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	// Check if the address is already bound to a certificate
	exists, err := h.PrincipalService.PrincipalExists(r.Context(), req.Address)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if exists {
		http.Error(w, "principal already enrolled", http.StatusConflict)
		return
	}

	// Load CA credentials for signing
	caCert, caKey, err := certgen.LoadCACredentials("certs/ca.crt", "certs/ca.key")
	if err != nil {
		http.Error(w, "failed to load CA", http.StatusInternalServerError)
		return
	}

	// Generate the principal certificate signed by the CA
	certPEM, keyPEM, err := certgen.GeneratePrincipalCertificate(req.Address, caCert, caKey)
	if err != nil {
		http.Error(w, "failed to generate certificate", http.StatusInternalServerError)
		return
	}

	// Save the new principal in the database
	if err := h.PrincipalService.RegisterPrincipal(r.Context(), req.Address); err != nil {
		http.Error(w, "failed to save principal", http.StatusInternalServerError)
		return
	}

	// Respond with the generated certificate and key
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"cert": string(certPEM),
		"key":  string(keyPEM),
	})
}
