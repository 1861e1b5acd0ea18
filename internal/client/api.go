package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/custodix/recoveryd/internal/models"
)

// API wraps an mTLS HTTP client with typed calls for each recovery endpoint.
// The caller identity comes from the client certificate; no identity fields
// travel in request bodies.
type API struct {
	HTTP    *http.Client
	BaseURL string
}

// post sends a JSON body and decodes the response into out when non-nil.
func (a *API) post(path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := a.HTTP.Post(a.BaseURL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// get fetches a path and decodes the JSON response into out.
func (a *API) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, a.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// CreateAccount enrolls a custody account owned by the caller.
func (a *API) CreateAccount(accountID string) error {
	return a.post("/api/accounts", map[string]string{"account": accountID}, nil)
}

// GetAccount fetches the account record.
func (a *API) GetAccount(accountID string) (*models.Account, error) {
	var acc models.Account
	if err := a.get("/api/accounts/"+accountID, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// SetBiometric stores the hex-encoded commitment on the account.
func (a *API) SetBiometric(accountID, hash string) error {
	return a.post("/api/accounts/"+accountID+"/biometric", map[string]string{"hash": hash}, nil)
}

// VerifyBiometric checks a candidate commitment against the stored one.
func (a *API) VerifyBiometric(accountID, hash string) (bool, error) {
	var out struct {
		Match bool `json:"match"`
	}
	if err := a.post("/api/accounts/"+accountID+"/biometric/verify", map[string]string{"hash": hash}, &out); err != nil {
		return false, err
	}
	return out.Match, nil
}

// AddGuardian registers a guardian on the account.
func (a *API) AddGuardian(accountID, guardian, handle string) error {
	return a.post("/api/accounts/"+accountID+"/guardians",
		map[string]string{"guardian": guardian, "handle": handle}, nil)
}

// RemoveGuardian deletes a guardian from the account.
func (a *API) RemoveGuardian(accountID, guardian string) error {
	req, err := http.NewRequest(http.MethodDelete, a.BaseURL+"/api/accounts/"+accountID+"/guardians/"+guardian, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	return nil
}

// Guardians lists the account's guardians.
func (a *API) Guardians(accountID string) ([]models.Guardian, error) {
	var out []models.Guardian
	if err := a.get("/api/accounts/"+accountID+"/guardians", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckIn refreshes the owner's liveness timestamp.
func (a *API) CheckIn(accountID string) error {
	return a.post("/api/accounts/"+accountID+"/checkin", map[string]string{}, nil)
}

// InitiateRecovery opens a recovery request proposing a new owner.
func (a *API) InitiateRecovery(accountID, newOwner string, ownerUnreachable bool) (*models.RecoveryRequest, error) {
	var out models.RecoveryRequest
	err := a.post("/api/accounts/"+accountID+"/recovery", map[string]any{
		"new_owner":         newOwner,
		"owner_unreachable": ownerUnreachable,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ApproveRecovery records the caller's concurrence with the live proposal.
func (a *API) ApproveRecovery(accountID, newOwner string) error {
	return a.post("/api/accounts/"+accountID+"/recovery/approve", map[string]string{"new_owner": newOwner}, nil)
}

// ExecuteRecovery applies the ownership change.
func (a *API) ExecuteRecovery(accountID, newOwner string) error {
	return a.post("/api/accounts/"+accountID+"/recovery/execute", map[string]string{"new_owner": newOwner}, nil)
}

// CancelRecovery dismisses the live request; owner only.
func (a *API) CancelRecovery(accountID string) error {
	return a.post("/api/accounts/"+accountID+"/recovery/cancel", map[string]string{}, nil)
}

// RecoveryStatus fetches the account's most recent recovery request.
func (a *API) RecoveryStatus(accountID string) (*models.RecoveryRequest, error) {
	var out models.RecoveryRequest
	if err := a.get("/api/accounts/"+accountID+"/recovery", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PayFee submits a fee payment for the account.
func (a *API) PayFee(accountID string, amount int64) (*models.FeePayment, error) {
	var out models.FeePayment
	if err := a.post("/api/accounts/"+accountID+"/fee", map[string]int64{"amount": amount}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestNotification asks the server to issue an out-of-band notification
// request and returns its id.
func (a *API) RequestNotification(accountID, message string) (string, error) {
	var out struct {
		RequestID string `json:"request_id"`
	}
	if err := a.post("/api/accounts/"+accountID+"/notifications", map[string]string{"message": message}, &out); err != nil {
		return "", err
	}
	return out.RequestID, nil
}
