// Package service provides the business logic of the recovery module:
// principal enrollment, credential commitments, guardian management, the
// recovery state machine, fee gating, and notification request issuance.
// Persistence is delegated to repository interfaces.
package service

import (
	"context"
)

// PrincipalRepository defines the persistence operations
// required by the principal enrollment service.
type PrincipalRepository interface {
	// PrincipalExists returns true if the address is already enrolled.
	// ctx carries deadlines, cancellation signals, and other request-scoped values.
	PrincipalExists(ctx context.Context, address string) (bool, error)
	// RegisterPrincipal creates a new principal record for the address.
	// Returns an error if the operation fails.
	RegisterPrincipal(ctx context.Context, address string) error
}

// PrincipalService implements principal enrollment by delegating
// to a PrincipalRepository.
type PrincipalService struct {
	// repo performs the data-layer operations.
	repo PrincipalRepository
}

// NewPrincipalService constructs a PrincipalService using the provided repository.
func NewPrincipalService(repo PrincipalRepository) *PrincipalService {
	return &PrincipalService{repo: repo}
}

// PrincipalExists checks whether a principal with the given address is enrolled.
func (s *PrincipalService) PrincipalExists(ctx context.Context, address string) (bool, error) {
	return s.repo.PrincipalExists(ctx, address)
}

// RegisterPrincipal enrolls a new principal address.
// Returns an error if the repository operation fails.
func (s *PrincipalService) RegisterPrincipal(ctx context.Context, address string) error {
	return s.repo.RegisterPrincipal(ctx, address)
}
