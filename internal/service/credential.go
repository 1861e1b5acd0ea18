package service

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/custodix/recoveryd/internal/models"
	"go.uber.org/zap"
)

// commitmentHexLen is the hex length of a 32-byte biometric commitment.
const commitmentHexLen = 64

// CredentialRepository defines the persistence operations required by the
// credential commitment service.
type CredentialRepository interface {
	// GetOwner returns the current owner of the account. Returns
	// models.ErrAccountNotFound if no record exists.
	GetOwner(ctx context.Context, accountID string) (string, error)
	// SetBiometricHash overwrites the stored commitment for the account.
	SetBiometricHash(ctx context.Context, accountID, hash string) error
	// GetBiometricHash returns the stored commitment, or "" when none
	// is enrolled. Returns models.ErrAccountNotFound if no record exists.
	GetBiometricHash(ctx context.Context, accountID string) (string, error)
}

// CredentialService stores and compares biometric credential commitments.
// The commitment is an opaque hash produced by an external authenticator
// ceremony; the module never verifies the ceremony itself.
type CredentialService struct {
	repo CredentialRepository
	log  *zap.Logger
}

// NewCredentialService constructs a CredentialService.
func NewCredentialService(repo CredentialRepository, log *zap.Logger) *CredentialService {
	return &CredentialService{repo: repo, log: log}
}

// normalizeCommitment validates a hex-encoded 32-byte hash and returns it in
// canonical lowercase form.
func normalizeCommitment(hash string) (string, error) {
	hash = strings.ToLower(strings.TrimPrefix(hash, "0x"))
	if len(hash) != commitmentHexLen {
		return "", models.ErrInvalidCommitment
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return "", models.ErrInvalidCommitment
	}
	return hash, nil
}

// SetBiometricHash overwrites the account's commitment. Only the current
// owner may enroll; no proof of possession of the prior commitment is
// required, since the owner can always re-enroll while still in control.
func (s *CredentialService) SetBiometricHash(ctx context.Context, caller, accountID, hash string) error {
	normalized, err := normalizeCommitment(hash)
	if err != nil {
		return err
	}

	owner, err := s.repo.GetOwner(ctx, accountID)
	if err != nil {
		return err
	}
	if caller != owner {
		return models.ErrUnauthorized
	}

	if err := s.repo.SetBiometricHash(ctx, accountID, normalized); err != nil {
		return err
	}

	s.log.Info("biometric commitment updated", zap.String("account", accountID))
	return nil
}

// VerifyBiometricHash reports whether the candidate equals the stored
// commitment. A mismatch or an absent commitment is a normal false result,
// never an error.
func (s *CredentialService) VerifyBiometricHash(ctx context.Context, accountID, hash string) (bool, error) {
	stored, err := s.repo.GetBiometricHash(ctx, accountID)
	if err != nil {
		return false, err
	}
	if stored == "" {
		return false, nil
	}

	candidate, err := normalizeCommitment(hash)
	if err != nil {
		return false, nil
	}
	return candidate == stored, nil
}
