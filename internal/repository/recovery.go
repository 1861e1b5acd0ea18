package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodix/recoveryd/internal/models"
)

// PostgresRecoveryRepository implements recovery request persistence against
// a PostgreSQL database. Multi-row mutations run inside transactions so a
// failed operation never leaves partial state behind.
type PostgresRecoveryRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresRecoveryRepository creates a new PostgresRecoveryRepository
// using the provided *sql.DB.
func NewPostgresRecoveryRepository(db *sql.DB) *PostgresRecoveryRepository {
	return &PostgresRecoveryRepository{DB: db}
}

// GetOwner returns the current owner of the account.
func (s *PostgresRecoveryRepository) GetOwner(ctx context.Context, accountID string) (string, error) {
	var owner string
	err := s.DB.QueryRowContext(ctx, `
		SELECT owner FROM accounts WHERE id = $1
	`, accountID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", models.ErrAccountNotFound
	}
	if err != nil {
		return "", fmt.Errorf("GetOwner: %w", err)
	}
	return owner, nil
}

// GetGuardians returns the guardian set in insertion order.
func (s *PostgresRecoveryRepository) GetGuardians(ctx context.Context, accountID string) ([]models.Guardian, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT account_id, address, handle, added_at FROM guardians WHERE account_id = $1 ORDER BY ord
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("GetGuardians: %w", err)
	}
	defer rows.Close()

	var guardians []models.Guardian
	for rows.Next() {
		var g models.Guardian
		if err := rows.Scan(&g.AccountID, &g.Address, &g.Handle, &g.AddedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		guardians = append(guardians, g)
	}
	return guardians, rows.Err()
}

// GetBiometricHash returns the stored commitment, "" when none is enrolled.
func (s *PostgresRecoveryRepository) GetBiometricHash(ctx context.Context, accountID string) (string, error) {
	var hash string
	err := s.DB.QueryRowContext(ctx, `
		SELECT biometric_hash FROM accounts WHERE id = $1
	`, accountID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", models.ErrAccountNotFound
	}
	if err != nil {
		return "", fmt.Errorf("GetBiometricHash: %w", err)
	}
	return hash, nil
}

// GetCurrentRequest returns the account's most recent recovery request
// regardless of state, or nil when the account has never had one.
func (s *PostgresRecoveryRepository) GetCurrentRequest(ctx context.Context, accountID string) (*models.RecoveryRequest, error) {
	var req models.RecoveryRequest
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, account_id, proposed_owner, initiator, state, created_at
		  FROM recovery_requests
		 WHERE account_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1
	`, accountID).Scan(&req.ID, &req.AccountID, &req.ProposedOwner, &req.Initiator, &req.State, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetCurrentRequest: %w", err)
	}
	return &req, nil
}

// CreateRequest inserts a new request and records the initiator's
// concurrence in the same transaction. The partial unique index on live
// requests rejects a second live request per account at the storage layer.
func (s *PostgresRecoveryRepository) CreateRequest(ctx context.Context, req models.RecoveryRequest) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO recovery_requests (id, account_id, proposed_owner, initiator, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, req.ID, req.AccountID, req.ProposedOwner, req.Initiator, req.State, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO recovery_approvals (request_id, guardian, approved_at) VALUES ($1, $2, $3)
	`, req.ID, req.Initiator, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert initiator approval: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecordApproval records a guardian's concurrence; re-approving is a no-op.
func (s *PostgresRecoveryRepository) RecordApproval(ctx context.Context, requestID, guardian string, at time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO recovery_approvals (request_id, guardian, approved_at)
		VALUES ($1, $2, $3) ON CONFLICT DO NOTHING
	`, requestID, guardian, at)
	if err != nil {
		return fmt.Errorf("RecordApproval: %w", err)
	}
	return nil
}

// CountApprovals returns the number of distinct concurring guardians.
func (s *PostgresRecoveryRepository) CountApprovals(ctx context.Context, requestID string) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM recovery_approvals WHERE request_id = $1
	`, requestID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("CountApprovals: %w", err)
	}
	return count, nil
}

// CloseRequest moves a live request to the given terminal state. Closing an
// already-terminal request is a no-op.
func (s *PostgresRecoveryRepository) CloseRequest(ctx context.Context, requestID string, state models.RequestState) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE recovery_requests SET state = $2 WHERE id = $1 AND state = 'initiated'
	`, requestID, state)
	if err != nil {
		return fmt.Errorf("CloseRequest: %w", err)
	}
	return nil
}

// ExecuteRequest applies the ownership change, marks the request executed,
// and clears its concurrences in one transaction. A request that is no
// longer live fails the whole transaction.
func (s *PostgresRecoveryRepository) ExecuteRequest(ctx context.Context, requestID, accountID, newOwner string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE recovery_requests SET state = 'executed' WHERE id = $1 AND state = 'initiated'
	`, requestID)
	if err != nil {
		return fmt.Errorf("mark executed: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark executed rows: %w", err)
	}
	if rows == 0 {
		return models.ErrRecoveryNotFound
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE accounts SET owner = $2 WHERE id = $1
	`, accountID, newOwner)
	if err != nil {
		return fmt.Errorf("set owner: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM recovery_approvals WHERE request_id = $1
	`, requestID)
	if err != nil {
		return fmt.Errorf("clear approvals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CheckIn updates the owner's last check-in and expires any live request in
// one transaction, returning the expired request id or "".
func (s *PostgresRecoveryRepository) CheckIn(ctx context.Context, accountID string, at time.Time) (string, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE accounts SET last_check_in = $2 WHERE id = $1
	`, accountID, at)
	if err != nil {
		return "", fmt.Errorf("set last check-in: %w", err)
	}

	var expiredID string
	err = tx.QueryRowContext(ctx, `
		UPDATE recovery_requests SET state = 'expired'
		 WHERE account_id = $1 AND state = 'initiated'
		 RETURNING id
	`, accountID).Scan(&expiredID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("expire live request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return expiredID, nil
}
