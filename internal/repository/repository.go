// Package repository provides data access interfaces and PostgreSQL
// implementations for tickets and handlers.
//
// All methods return domain errors: domain.ErrNotFound when a row does not
// exist (including writes that affect zero rows), domain.ErrAlreadyExists on
// unique violations, and domain.ErrInvalidTransition when a status change is
// not permitted. Database errors are wrapped with %w.
//
// Repositories accept a DBTX so they run against the pool or inside a
// transaction opened by the caller. Status transitions open their own
// transaction when handed the pool.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/helpdesk-triage-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX

// txBeginner is implemented by pools (and *database.DB) but not by pgx.Tx.
// Read-modify-write methods use it to open their own transaction when the
// caller did not.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgreSQL error codes used for constraint violation detection.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Filter pagination defaults and limits.
const (
	defaultFilterLimit = 50
	maxFilterLimit     = 500
)

// applyPaginationDefaults clamps limit to [1, maxFilterLimit] and offset to >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultFilterLimit
	}
	if *limit > maxFilterLimit {
		*limit = maxFilterLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

// withTx runs fn inside a transaction when db can begin one; otherwise fn
// runs directly on db, which is then already a transaction.
func withTx(ctx context.Context, db DBTX, fn func(DBTX) error) error {
	beginner, ok := db.(txBeginner)
	if !ok {
		return fn(db)
	}

	tx, err := beginner.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
