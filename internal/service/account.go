package service

import (
	"context"

	"github.com/custodix/recoveryd/internal/models"
	"go.uber.org/zap"
)

// AccountRepository defines the persistence operations required by the
// account enrollment service.
type AccountRepository interface {
	// CreateAccount inserts a new custody account record. Returns
	// models.ErrAccountExists if the id is already taken.
	CreateAccount(ctx context.Context, id, owner string) error
	// GetAccount fetches one account record. Returns
	// models.ErrAccountNotFound if no record exists.
	GetAccount(ctx context.Context, id string) (*models.Account, error)
}

// AccountService handles custody account enrollment and reads.
type AccountService struct {
	repo AccountRepository
	log  *zap.Logger
}

// NewAccountService constructs an AccountService.
func NewAccountService(repo AccountRepository, log *zap.Logger) *AccountService {
	return &AccountService{repo: repo, log: log}
}

// CreateAccount enrolls a custody account owned by the caller.
func (s *AccountService) CreateAccount(ctx context.Context, caller, accountID string) error {
	if err := s.repo.CreateAccount(ctx, accountID, caller); err != nil {
		return err
	}
	s.log.Info("account enrolled",
		zap.String("account", accountID),
		zap.String("owner", caller),
	)
	return nil
}

// GetAccount returns the account record for the id.
func (s *AccountService) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	return s.repo.GetAccount(ctx, accountID)
}
