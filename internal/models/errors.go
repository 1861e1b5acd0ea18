package models

import "errors"

// Error kinds surfaced by the recovery module. Every rejected operation
// maps to exactly one of these; a failed operation leaves state untouched.
var (
	// ErrUnauthorized means the caller lacks the required role for the action.
	ErrUnauthorized = errors.New("caller not authorized")
	// ErrAccountNotFound means no custody account record exists for the id.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists means an account record already exists for the id.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidCommitment means the supplied value is not a 32-byte hex hash.
	ErrInvalidCommitment = errors.New("invalid biometric commitment")
	// ErrGuardianLimitExceeded means the 2-guardian cap would be exceeded.
	ErrGuardianLimitExceeded = errors.New("guardian limit exceeded")
	// ErrGuardianAlreadyPresent means the guardian is already registered.
	ErrGuardianAlreadyPresent = errors.New("guardian already present")
	// ErrGuardianNotFound means the guardian is not registered for the account.
	ErrGuardianNotFound = errors.New("guardian not found")
	// ErrRecoveryAlreadyLive means a non-terminal recovery request exists.
	ErrRecoveryAlreadyLive = errors.New("recovery request already live")
	// ErrRecoveryNotFound means no matching live recovery request exists.
	ErrRecoveryNotFound = errors.New("recovery request not found")
	// ErrThresholdNotMet means too few distinct guardian concurrences.
	ErrThresholdNotMet = errors.New("concurrence threshold not met")
	// ErrTimelockNotElapsed means the mandatory delay has not passed.
	ErrTimelockNotElapsed = errors.New("timelock not elapsed")
	// ErrRequestExpired means the request ended by check-in or the age ceiling.
	ErrRequestExpired = errors.New("recovery request expired")
	// ErrInsufficientFee means the attached payment is below the minimum.
	ErrInsufficientFee = errors.New("insufficient fee")
)
