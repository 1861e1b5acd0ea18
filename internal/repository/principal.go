// Package repository provides PostgreSQL persistence for the recovery module.
package repository

import (
	"context"
	"database/sql"
)

// PostgresPrincipalRepository implements principal enrollment persistence
// using a PostgreSQL database.
type PostgresPrincipalRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresPrincipalRepository creates a new PostgresPrincipalRepository
// with the given database connection.
func NewPostgresPrincipalRepository(db *sql.DB) *PostgresPrincipalRepository {
	return &PostgresPrincipalRepository{DB: db}
}

// PrincipalExists checks whether a principal with the given address is
// enrolled. It returns true if the principal exists, false otherwise.
func (s *PostgresPrincipalRepository) PrincipalExists(ctx context.Context, address string) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM principals WHERE address = $1)`,
		address,
	).Scan(&exists)
	return exists, err
}

// RegisterPrincipal enrolls a new principal address. If the address is
// already enrolled, the ON CONFLICT DO NOTHING clause prevents an error.
func (s *PostgresPrincipalRepository) RegisterPrincipal(ctx context.Context, address string) error {
	_, err := s.DB.ExecContext(
		ctx,
		`INSERT INTO principals (address) VALUES ($1) ON CONFLICT DO NOTHING`,
		address,
	)
	return err
}
