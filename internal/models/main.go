// Package models defines the core data structures for custody accounts,
// guardians, and recovery requests.
package models

import "time"

// Account is the module's record of a custody account subject to recovery.
type Account struct {
	// ID is the address-like identifier of the custody account.
	ID string `json:"id"`
	// Owner is the current owner principal; changed only by a successful
	// recovery execution.
	Owner string `json:"owner"`
	// BiometricHash is the hex-encoded 32-byte credential commitment.
	// Empty when no commitment is enrolled.
	BiometricHash string `json:"biometric_hash,omitempty"`
	// LastCheckIn is the owner's most recent proof-of-life timestamp.
	LastCheckIn time.Time `json:"last_check_in"`
	// CreatedAt is when the account record was enrolled.
	CreatedAt time.Time `json:"created_at"`
}

// Guardian is an authorization principal attached to one account.
// Guardians are not accounts of the module.
type Guardian struct {
	// AccountID is the account this guardian protects.
	AccountID string `json:"account_id"`
	// Address is the guardian's principal identifier.
	Address string `json:"address"`
	// Handle is the guardian's human-readable social handle.
	Handle string `json:"handle"`
	// AddedAt is when the owner registered this guardian.
	AddedAt time.Time `json:"added_at"`
}

// RequestState identifies the stored state of a recovery request.
// Executability (timelock elapsed and threshold met) is derived at read
// time, never stored.
type RequestState string

const (
	// RequestInitiated is the single live state of a recovery request.
	RequestInitiated RequestState = "initiated"
	// RequestExecuted marks a request whose ownership change was applied.
	RequestExecuted RequestState = "executed"
	// RequestCancelled marks a request explicitly dismissed by the owner.
	RequestCancelled RequestState = "cancelled"
	// RequestExpired marks a request ended by owner check-in or the
	// absolute age ceiling.
	RequestExpired RequestState = "expired"
)

// Terminal reports whether the state admits no further transitions.
func (s RequestState) Terminal() bool {
	return s != RequestInitiated
}

// RecoveryRequest is one in-flight attempt to change an account's owner.
// At most one non-terminal request exists per account.
type RecoveryRequest struct {
	// ID is the unique request identifier.
	ID string `json:"id"`
	// AccountID references the account under recovery.
	AccountID string `json:"account_id"`
	// ProposedOwner is the principal that will own the account on execute.
	ProposedOwner string `json:"proposed_owner"`
	// Initiator is the guardian that opened the request.
	Initiator string `json:"initiator"`
	// State is the stored lifecycle state.
	State RequestState `json:"state"`
	// CreatedAt starts both the timelock and the absolute expiry clock.
	CreatedAt time.Time `json:"created_at"`
}

// NotificationRequest is an issued out-of-band notification identifier.
// Delivery is an external collaborator's responsibility; the module only
// guarantees the identifier is unique and fresh.
type NotificationRequest struct {
	// ID is the derived, collision-resistant request identifier.
	ID string `json:"id"`
	// AccountID is the account the notification concerns.
	AccountID string `json:"account_id"`
	// Requester is the principal that asked for the notification.
	Requester string `json:"requester"`
	// Message is the caller-supplied payload.
	Message string `json:"message"`
	// CreatedAt is the issue time.
	CreatedAt time.Time `json:"created_at"`
}

// FeePayment is one recorded fee-gate payment. Overpayment above the
// configured minimum is accepted and recorded without refund.
type FeePayment struct {
	// ID is the payment record identifier.
	ID string `json:"id"`
	// AccountID is the account the fee was collected for.
	AccountID string `json:"account_id"`
	// Payer is the principal that attached the payment.
	Payer string `json:"payer"`
	// Amount is the attached payment in integer base units.
	Amount int64 `json:"amount"`
	// PaidAt is when the payment was accepted.
	PaidAt time.Time `json:"paid_at"`
}
