package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"chorequest/internal/config"
)

// DB wraps the database connection with dialect support
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open creates and configures the database connection based on config
func Open(cfg *config.Config) (*DB, error) {
	dialect, err := NewDialect(cfg.DatabaseType)
	if err != nil {
		return nil, err
	}
	return OpenDialect(dialect, DialectConfig{
		Path: cfg.DatabasePath,
		URL:  cfg.DatabaseURL,
		Pool: PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		},
	})
}

// OpenDialect opens, pings and configures a connection for the given dialect
func OpenDialect(dialect Dialect, dialectConfig DialectConfig) (*DB, error) {
	dsn, err := dialect.DSN(dialectConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s dsn: %w", dialect.Name(), err)
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	dialectConfig.Pool.withDefaults(dialect.DefaultPool()).apply(db)
	if err := dialect.Prepare(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare %s database: %w", dialect.Name(), err)
	}

	return &DB{DB: db, Dialect: dialect}, nil
}

// NewDialect resolves a DATABASE_TYPE value to its dialect
func NewDialect(databaseType string) (Dialect, error) {
	switch strings.ToLower(databaseType) {
	case "postgres", "postgresql":
		return NewPostgresDialect(), nil
	case "mysql":
		return NewMySQLDialect(), nil
	case "sqlite-purego", "sqlite-pure", "modernc":
		return NewPureSQLiteDialect(), nil
	case "sqlite", "sqlite3", "":
		return NewSQLiteDialect(), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", databaseType)
	}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// QueryContext executes a query with automatic placeholder rewriting
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.DB.QueryContext(ctx, db.Dialect.RewriteQuery(query), args...)
}

// QueryRowContext executes a query that returns a single row with automatic placeholder rewriting
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.DB.QueryRowContext(ctx, db.Dialect.RewriteQuery(query), args...)
}

// ExecContext executes a query that doesn't return rows with automatic placeholder rewriting
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.DB.ExecContext(ctx, db.Dialect.RewriteQuery(query), args...)
}

// ExecReturningID executes an INSERT query and returns the new row's ID.
// PostgreSQL has no LastInsertId and gets a RETURNING clause instead.
func (db *DB) ExecReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	return execReturningID(ctx, db.DB, db.Dialect, query, args...)
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func execReturningID(ctx context.Context, q execQuerier, dialect Dialect, query string, args ...any) (int64, error) {
	rewrittenQuery := dialect.RewriteQuery(query)

	if dialect.SupportsLastInsertId() {
		result, err := q.ExecContext(ctx, rewrittenQuery, args...)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	}

	rewrittenQuery = strings.TrimSuffix(strings.TrimSpace(rewrittenQuery), ";")
	rewrittenQuery += " RETURNING id"

	var id int64
	if err := q.QueryRowContext(ctx, rewrittenQuery, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
