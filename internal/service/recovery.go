package service

import (
	"context"
	"time"

	"github.com/custodix/recoveryd/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecoveryRepository defines the persistence operations required by the
// recovery state machine. Multi-row mutations (create, execute, check-in)
// must be applied atomically.
type RecoveryRepository interface {
	// GetOwner returns the current owner of the account. Returns
	// models.ErrAccountNotFound if no record exists.
	GetOwner(ctx context.Context, accountID string) (string, error)
	// GetGuardians returns the guardian set in insertion order.
	GetGuardians(ctx context.Context, accountID string) ([]models.Guardian, error)
	// GetBiometricHash returns the stored commitment, or "" when none.
	GetBiometricHash(ctx context.Context, accountID string) (string, error)
	// GetCurrentRequest returns the account's most recent recovery request
	// regardless of state, or nil when the account has never had one.
	GetCurrentRequest(ctx context.Context, accountID string) (*models.RecoveryRequest, error)
	// CreateRequest inserts a new request and records the initiator's
	// concurrence in the same transaction.
	CreateRequest(ctx context.Context, req models.RecoveryRequest) error
	// RecordApproval records a guardian's concurrence. Recording the same
	// guardian twice is a no-op; the set stays distinct.
	RecordApproval(ctx context.Context, requestID, guardian string, at time.Time) error
	// CountApprovals returns the number of distinct concurring guardians.
	CountApprovals(ctx context.Context, requestID string) (int, error)
	// CloseRequest moves a request to the given terminal state.
	CloseRequest(ctx context.Context, requestID string, state models.RequestState) error
	// ExecuteRequest applies the ownership change, marks the request
	// executed, and clears its concurrences in one transaction.
	ExecuteRequest(ctx context.Context, requestID, accountID, newOwner string) error
	// CheckIn updates the owner's last check-in and expires any live
	// request in one transaction, returning the expired request id or "".
	CheckIn(ctx context.Context, accountID string, at time.Time) (string, error)
}

// RecoveryConfig carries the deployment policy of the state machine.
type RecoveryConfig struct {
	// Threshold is the number of distinct guardian concurrences required
	// to execute.
	Threshold int
	// Timelock is the mandatory delay between initiation and execution.
	Timelock time.Duration
	// MaxRequestAge is the absolute ceiling after which a pending request
	// expires regardless of approvals.
	MaxRequestAge time.Duration
}

// RecoveryService orchestrates the recovery request lifecycle:
//
//	initiate -> (timelock + threshold) -> execute
//	initiate -> cancel | check-in | age ceiling -> terminal
//
// Timelock and expiry are evaluated lazily as functions of the stored
// request and the current time at the top of each touching operation; no
// background timer drives transitions.
type RecoveryService struct {
	repo  RecoveryRepository
	cfg   RecoveryConfig
	locks *accountLocks
	log   *zap.Logger
	now   func() time.Time
}

// NewRecoveryService constructs a RecoveryService with the given policy.
func NewRecoveryService(repo RecoveryRepository, cfg RecoveryConfig, log *zap.Logger) *RecoveryService {
	return &RecoveryService{
		repo:  repo,
		cfg:   cfg,
		locks: newAccountLocks(),
		log:   log,
		now:   time.Now,
	}
}

// isGuardian reports whether the address is currently in the guardian set.
func isGuardian(guardians []models.Guardian, address string) bool {
	for _, g := range guardians {
		if g.Address == address {
			return true
		}
	}
	return false
}

// touch applies the lazy age-ceiling transition to the current request and
// returns it with any expiry persisted. A nil request stays nil.
func (s *RecoveryService) touch(ctx context.Context, req *models.RecoveryRequest, now time.Time) (*models.RecoveryRequest, error) {
	if req == nil || req.State != models.RequestInitiated {
		return req, nil
	}
	if now.Sub(req.CreatedAt) < s.cfg.MaxRequestAge {
		return req, nil
	}

	if err := s.repo.CloseRequest(ctx, req.ID, models.RequestExpired); err != nil {
		return nil, err
	}
	req.State = models.RequestExpired
	s.log.Info("recovery request expired by age ceiling",
		zap.String("account", req.AccountID),
		zap.String("request", req.ID),
	)
	return req, nil
}

// Initiate opens a recovery request proposing a new owner. The caller must
// be a registered guardian; the current owner may not initiate their own
// recovery. When a commitment is enrolled, the guardian must assert the
// legitimate owner could not be reached or verified (ownerUnreachable).
func (s *RecoveryService) Initiate(ctx context.Context, caller, accountID, newOwner string, ownerUnreachable bool) (*models.RecoveryRequest, error) {
	unlock := s.locks.lock(accountID)
	defer unlock()

	now := s.now()

	owner, err := s.repo.GetOwner(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if caller == owner {
		return nil, models.ErrUnauthorized
	}

	guardians, err := s.repo.GetGuardians(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !isGuardian(guardians, caller) {
		return nil, models.ErrUnauthorized
	}

	commitment, err := s.repo.GetBiometricHash(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if commitment != "" && !ownerUnreachable {
		return nil, models.ErrUnauthorized
	}

	cur, err := s.repo.GetCurrentRequest(ctx, accountID)
	if err != nil {
		return nil, err
	}
	cur, err = s.touch(ctx, cur, now)
	if err != nil {
		return nil, err
	}
	if cur != nil && cur.State == models.RequestInitiated {
		return nil, models.ErrRecoveryAlreadyLive
	}

	req := models.RecoveryRequest{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		ProposedOwner: newOwner,
		Initiator:     caller,
		State:         models.RequestInitiated,
		CreatedAt:     now,
	}
	if err := s.repo.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	s.log.Info("recovery initiated",
		zap.String("account", accountID),
		zap.String("request", req.ID),
		zap.String("initiator", caller),
		zap.String("proposed_owner", newOwner),
	)
	return &req, nil
}

// Approve records the caller's concurrence with the live (account, newOwner)
// proposal. The caller must currently be a guardian; re-approving is a no-op.
func (s *RecoveryService) Approve(ctx context.Context, caller, accountID, newOwner string) error {
	unlock := s.locks.lock(accountID)
	defer unlock()

	now := s.now()

	cur, err := s.currentLive(ctx, accountID, newOwner, now)
	if err != nil {
		return err
	}

	guardians, err := s.repo.GetGuardians(ctx, accountID)
	if err != nil {
		return err
	}
	if !isGuardian(guardians, caller) {
		return models.ErrUnauthorized
	}

	if err := s.repo.RecordApproval(ctx, cur.ID, caller, now); err != nil {
		return err
	}

	s.log.Info("recovery concurrence recorded",
		zap.String("account", accountID),
		zap.String("request", cur.ID),
		zap.String("guardian", caller),
	)
	return nil
}

// Execute applies the ownership change once the timelock has elapsed and the
// concurrence threshold is met. The caller must currently be a guardian. A
// second execute after success finds no live request and fails.
func (s *RecoveryService) Execute(ctx context.Context, caller, accountID, newOwner string) error {
	unlock := s.locks.lock(accountID)
	defer unlock()

	now := s.now()

	cur, err := s.currentLive(ctx, accountID, newOwner, now)
	if err != nil {
		return err
	}

	guardians, err := s.repo.GetGuardians(ctx, accountID)
	if err != nil {
		return err
	}
	if !isGuardian(guardians, caller) {
		return models.ErrUnauthorized
	}

	if now.Sub(cur.CreatedAt) < s.cfg.Timelock {
		return models.ErrTimelockNotElapsed
	}

	approvals, err := s.repo.CountApprovals(ctx, cur.ID)
	if err != nil {
		return err
	}
	if approvals < s.cfg.Threshold {
		return models.ErrThresholdNotMet
	}

	if err := s.repo.ExecuteRequest(ctx, cur.ID, accountID, newOwner); err != nil {
		return err
	}

	s.log.Info("recovery executed",
		zap.String("account", accountID),
		zap.String("request", cur.ID),
		zap.String("new_owner", newOwner),
		zap.String("executed_by", caller),
	)
	return nil
}

// Cancel dismisses the live request. Only the current owner may cancel.
func (s *RecoveryService) Cancel(ctx context.Context, caller, accountID string) error {
	unlock := s.locks.lock(accountID)
	defer unlock()

	now := s.now()

	owner, err := s.repo.GetOwner(ctx, accountID)
	if err != nil {
		return err
	}
	if caller != owner {
		return models.ErrUnauthorized
	}

	cur, err := s.repo.GetCurrentRequest(ctx, accountID)
	if err != nil {
		return err
	}
	cur, err = s.touch(ctx, cur, now)
	if err != nil {
		return err
	}
	if cur == nil || cur.State != models.RequestInitiated {
		return models.ErrRecoveryNotFound
	}

	if err := s.repo.CloseRequest(ctx, cur.ID, models.RequestCancelled); err != nil {
		return err
	}

	s.log.Info("recovery cancelled by owner",
		zap.String("account", accountID),
		zap.String("request", cur.ID),
	)
	return nil
}

// CheckIn refreshes the owner's liveness timestamp and expires any live
// recovery request in the same transaction. Owner presence is conclusive
// evidence recovery should not proceed.
func (s *RecoveryService) CheckIn(ctx context.Context, caller, accountID string) error {
	unlock := s.locks.lock(accountID)
	defer unlock()

	owner, err := s.repo.GetOwner(ctx, accountID)
	if err != nil {
		return err
	}
	if caller != owner {
		return models.ErrUnauthorized
	}

	expiredID, err := s.repo.CheckIn(ctx, accountID, s.now())
	if err != nil {
		return err
	}

	if expiredID != "" {
		s.log.Info("recovery request expired by owner check-in",
			zap.String("account", accountID),
			zap.String("request", expiredID),
		)
	}
	return nil
}

// Status returns the account's most recent recovery request with lazy expiry
// applied. Returns models.ErrRecoveryNotFound when the account has never had
// a request.
func (s *RecoveryService) Status(ctx context.Context, accountID string) (*models.RecoveryRequest, error) {
	unlock := s.locks.lock(accountID)
	defer unlock()

	if _, err := s.repo.GetOwner(ctx, accountID); err != nil {
		return nil, err
	}

	cur, err := s.repo.GetCurrentRequest(ctx, accountID)
	if err != nil {
		return nil, err
	}
	cur, err = s.touch(ctx, cur, s.now())
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, models.ErrRecoveryNotFound
	}
	return cur, nil
}

// currentLive resolves the live request matching (accountID, newOwner) after
// applying lazy expiry. An expired request surfaces as ErrRequestExpired; a
// missing, mismatching, or otherwise terminal one as ErrRecoveryNotFound.
func (s *RecoveryService) currentLive(ctx context.Context, accountID, newOwner string, now time.Time) (*models.RecoveryRequest, error) {
	cur, err := s.repo.GetCurrentRequest(ctx, accountID)
	if err != nil {
		return nil, err
	}
	cur, err = s.touch(ctx, cur, now)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, models.ErrRecoveryNotFound
	}
	switch cur.State {
	case models.RequestInitiated:
	case models.RequestExpired:
		return nil, models.ErrRequestExpired
	default:
		return nil, models.ErrRecoveryNotFound
	}
	if cur.ProposedOwner != newOwner {
		return nil, models.ErrRecoveryNotFound
	}
	return cur, nil
}
