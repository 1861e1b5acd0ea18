package service

import (
	"context"
	"time"

	"github.com/custodix/recoveryd/internal/models"
	"go.uber.org/zap"
)

// maxGuardians caps the guardian set per account. The small bound trades
// recovery flexibility for an auditable trust set.
const maxGuardians = 2

// GuardianRepository defines the persistence operations required by the
// guardian registry service.
type GuardianRepository interface {
	// GetOwner returns the current owner of the account. Returns
	// models.ErrAccountNotFound if no record exists.
	GetOwner(ctx context.Context, accountID string) (string, error)
	// GetGuardians returns the guardian set in insertion order.
	GetGuardians(ctx context.Context, accountID string) ([]models.Guardian, error)
	// AddGuardian inserts a guardian for the account.
	AddGuardian(ctx context.Context, g models.Guardian) error
	// RemoveGuardian deletes a guardian; returns false if it was absent.
	RemoveGuardian(ctx context.Context, accountID, address string) (bool, error)
}

// GuardianService maintains the bounded guardian set per account.
type GuardianService struct {
	repo  GuardianRepository
	locks *accountLocks
	log   *zap.Logger
	now   func() time.Time
}

// NewGuardianService constructs a GuardianService.
func NewGuardianService(repo GuardianRepository, log *zap.Logger) *GuardianService {
	return &GuardianService{
		repo:  repo,
		locks: newAccountLocks(),
		log:   log,
		now:   time.Now,
	}
}

// AddGuardian registers a guardian for the account. Only the owner may add;
// duplicates and a third guardian are rejected.
func (s *GuardianService) AddGuardian(ctx context.Context, caller, accountID, guardian, handle string) error {
	unlock := s.locks.lock(accountID)
	defer unlock()

	owner, err := s.repo.GetOwner(ctx, accountID)
	if err != nil {
		return err
	}
	if caller != owner {
		return models.ErrUnauthorized
	}

	guardians, err := s.repo.GetGuardians(ctx, accountID)
	if err != nil {
		return err
	}
	for _, g := range guardians {
		if g.Address == guardian {
			return models.ErrGuardianAlreadyPresent
		}
	}
	if len(guardians) >= maxGuardians {
		return models.ErrGuardianLimitExceeded
	}

	if err := s.repo.AddGuardian(ctx, models.Guardian{
		AccountID: accountID,
		Address:   guardian,
		Handle:    handle,
		AddedAt:   s.now(),
	}); err != nil {
		return err
	}

	s.log.Info("guardian added",
		zap.String("account", accountID),
		zap.String("guardian", guardian),
		zap.String("handle", handle),
	)
	return nil
}

// RemoveGuardian deletes a guardian from the account. Only the owner may
// remove; removal is immediate, with no cooldown. Tightening trust is always
// allowed; an already-open recovery request initiated by the removed guardian
// is not retroactively invalidated.
func (s *GuardianService) RemoveGuardian(ctx context.Context, caller, accountID, guardian string) error {
	unlock := s.locks.lock(accountID)
	defer unlock()

	owner, err := s.repo.GetOwner(ctx, accountID)
	if err != nil {
		return err
	}
	if caller != owner {
		return models.ErrUnauthorized
	}

	removed, err := s.repo.RemoveGuardian(ctx, accountID, guardian)
	if err != nil {
		return err
	}
	if !removed {
		return models.ErrGuardianNotFound
	}

	s.log.Info("guardian removed",
		zap.String("account", accountID),
		zap.String("guardian", guardian),
	)
	return nil
}

// Guardians returns the account's guardian set in stable insertion order.
func (s *GuardianService) Guardians(ctx context.Context, accountID string) ([]models.Guardian, error) {
	if _, err := s.repo.GetOwner(ctx, accountID); err != nil {
		return nil, err
	}
	return s.repo.GetGuardians(ctx, accountID)
}
