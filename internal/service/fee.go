package service

import (
	"context"
	"time"

	"github.com/custodix/recoveryd/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FeeRepository defines the persistence operations required by the fee gate.
type FeeRepository interface {
	// GetOwner returns the current owner of the account. Returns
	// models.ErrAccountNotFound if no record exists.
	GetOwner(ctx context.Context, accountID string) (string, error)
	// RecordFeePayment appends an accepted payment to the fee ledger.
	RecordFeePayment(ctx context.Context, p models.FeePayment) error
}

// FeeService gates the fee-collection action behind a configured minimum
// payment. Excess payment is accepted without refund.
type FeeService struct {
	repo   FeeRepository
	minFee int64
	log    *zap.Logger
	now    func() time.Time
}

// NewFeeService constructs a FeeService with the given minimum fee.
func NewFeeService(repo FeeRepository, minFee int64, log *zap.Logger) *FeeService {
	return &FeeService{
		repo:   repo,
		minFee: minFee,
		log:    log,
		now:    time.Now,
	}
}

// CollectFee accepts a payment for the account if it meets the minimum.
func (s *FeeService) CollectFee(ctx context.Context, caller, accountID string, amount int64) (*models.FeePayment, error) {
	if amount < s.minFee {
		return nil, models.ErrInsufficientFee
	}

	if _, err := s.repo.GetOwner(ctx, accountID); err != nil {
		return nil, err
	}

	payment := models.FeePayment{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Payer:     caller,
		Amount:    amount,
		PaidAt:    s.now(),
	}
	if err := s.repo.RecordFeePayment(ctx, payment); err != nil {
		return nil, err
	}

	s.log.Info("fee collected",
		zap.String("account", accountID),
		zap.String("payer", caller),
		zap.Int64("amount", amount),
	)
	return &payment, nil
}
