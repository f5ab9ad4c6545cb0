package database

import (
	"context"
	"database/sql"
)

// DBTX defines the database operations needed by repositories.
// It is satisfied by both *DB and *Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecReturningID(ctx context.Context, query string, args ...any) (int64, error)
	GetDialect() Dialect
}

// Tx wraps sql.Tx with dialect-aware methods
type Tx struct {
	*sql.Tx
	dialect Dialect
}

// Begin starts a new transaction
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{Tx: tx, dialect: db.Dialect}, nil
}

// WithTx runs fn inside a transaction, committing on success
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// GetDialect returns the database dialect
func (db *DB) GetDialect() Dialect {
	return db.Dialect
}

// QueryContext executes a query with automatic placeholder rewriting
func (tx *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return tx.Tx.QueryContext(ctx, tx.dialect.RewriteQuery(query), args...)
}

// QueryRowContext executes a query that returns a single row with automatic placeholder rewriting
func (tx *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return tx.Tx.QueryRowContext(ctx, tx.dialect.RewriteQuery(query), args...)
}

// ExecContext executes a query that doesn't return rows with automatic placeholder rewriting
func (tx *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return tx.Tx.ExecContext(ctx, tx.dialect.RewriteQuery(query), args...)
}

// ExecReturningID executes an INSERT and returns the new row's ID
func (tx *Tx) ExecReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	return execReturningID(ctx, tx.Tx, tx.dialect, query, args...)
}

// GetDialect returns the transaction's dialect
func (tx *Tx) GetDialect() Dialect {
	return tx.dialect
}
