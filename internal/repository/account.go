package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodix/recoveryd/internal/models"
)

// PostgresAccountRepository implements custody account persistence: the
// account record, its credential commitment, its guardian set, and the fee
// and notification ledgers. It is also the module's custody capability: the
// owner column is the authoritative owner of the external account.
type PostgresAccountRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresAccountRepository creates a new PostgresAccountRepository
// using the provided *sql.DB.
func NewPostgresAccountRepository(db *sql.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{DB: db}
}

// CreateAccount inserts a new account record owned by the given principal.
// Returns models.ErrAccountExists when the id is already taken.
func (s *PostgresAccountRepository) CreateAccount(ctx context.Context, id, owner string) error {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO accounts (id, owner) VALUES ($1, $2) ON CONFLICT DO NOTHING
	`, id, owner)
	if err != nil {
		return fmt.Errorf("CreateAccount: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("CreateAccount rows: %w", err)
	}
	if rows == 0 {
		return models.ErrAccountExists
	}
	return nil
}

// GetAccount fetches one account record by id.
// Returns models.ErrAccountNotFound when no record exists.
func (s *PostgresAccountRepository) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var acc models.Account
	var lastCheckIn sql.NullTime
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, owner, biometric_hash, last_check_in, created_at FROM accounts WHERE id = $1
	`, id).Scan(&acc.ID, &acc.Owner, &acc.BiometricHash, &lastCheckIn, &acc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetAccount: %w", err)
	}
	if lastCheckIn.Valid {
		acc.LastCheckIn = lastCheckIn.Time
	}
	return &acc, nil
}

// GetOwner returns the current owner of the account.
func (s *PostgresAccountRepository) GetOwner(ctx context.Context, accountID string) (string, error) {
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

// SetOwner overwrites the account's owner. This is the owner-setting
// capability of the custody account.
func (s *PostgresAccountRepository) SetOwner(ctx context.Context, accountID, newOwner string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE accounts SET owner = $2 WHERE id = $1
	`, accountID, newOwner)
	if err != nil {
		return fmt.Errorf("SetOwner: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return models.ErrAccountNotFound
	}
	return nil
}

// SetBiometricHash unconditionally overwrites the stored commitment.
func (s *PostgresAccountRepository) SetBiometricHash(ctx context.Context, accountID, hash string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE accounts SET biometric_hash = $2 WHERE id = $1
	`, accountID, hash)
	if err != nil {
		return fmt.Errorf("SetBiometricHash: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return models.ErrAccountNotFound
	}
	return nil
}

// GetBiometricHash returns the stored commitment, "" when none is enrolled.
func (s *PostgresAccountRepository) GetBiometricHash(ctx context.Context, accountID string) (string, error) {
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

// AddGuardian inserts a guardian row for the account.
func (s *PostgresAccountRepository) AddGuardian(ctx context.Context, g models.Guardian) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO guardians (account_id, address, handle, added_at) VALUES ($1, $2, $3, $4)
	`, g.AccountID, g.Address, g.Handle, g.AddedAt)
	if err != nil {
		return fmt.Errorf("AddGuardian: %w", err)
	}
	return nil
}

// RemoveGuardian deletes a guardian row; returns false if it was absent.
func (s *PostgresAccountRepository) RemoveGuardian(ctx context.Context, accountID, address string) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM guardians WHERE account_id = $1 AND address = $2
	`, accountID, address)
	if err != nil {
		return false, fmt.Errorf("RemoveGuardian: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("RemoveGuardian rows: %w", err)
	}
	return rows > 0, nil
}

// GetGuardians returns the guardian set in insertion order. The order has no
// semantic weight but must stay stable for display.
func (s *PostgresAccountRepository) GetGuardians(ctx context.Context, accountID string) ([]models.Guardian, error) {
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

// RecordFeePayment appends an accepted payment to the fee ledger.
func (s *PostgresAccountRepository) RecordFeePayment(ctx context.Context, p models.FeePayment) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO fee_payments (id, account_id, payer, amount, paid_at) VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.AccountID, p.Payer, p.Amount, p.PaidAt)
	if err != nil {
		return fmt.Errorf("RecordFeePayment: %w", err)
	}
	return nil
}

// SaveNotificationRequest persists an issued notification request id.
// The primary key keeps ids unique; a collision surfaces as an error.
func (s *PostgresAccountRepository) SaveNotificationRequest(ctx context.Context, n models.NotificationRequest) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO notification_requests (id, account_id, requester, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, n.ID, n.AccountID, n.Requester, n.Message, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("SaveNotificationRequest: %w", err)
	}
	return nil
}
