package database

import (
	"database/sql"
	"errors"

	_ "github.com/lib/pq"
)

// PostgresDialect implements Dialect for PostgreSQL
type PostgresDialect struct{}

// NewPostgresDialect creates a new PostgreSQL dialect
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) Name() string {
	return "postgres"
}

func (d *PostgresDialect) DriverName() string {
	return "postgres"
}

func (d *PostgresDialect) DSN(config DialectConfig) (string, error) {
	if config.URL == "" {
		return "", errors.New("DATABASE_URL is required for postgres")
	}
	return config.URL, nil
}

func (d *PostgresDialect) RewriteQuery(query string) string {
	return rewritePlaceholdersToNumbered(query)
}

func (d *PostgresDialect) SupportsLastInsertId() bool {
	return false
}

func (d *PostgresDialect) DefaultPool() PoolConfig {
	return serverPool
}

// Prepare pins the session to UTC so TIMESTAMPTZ values scan consistently
func (d *PostgresDialect) Prepare(db *sql.DB) error {
	_, err := db.Exec("SET TIME ZONE 'UTC'")
	return err
}

func (d *PostgresDialect) MigrationsSubdir() string {
	return "postgres"
}

func (d *PostgresDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id BIGSERIAL PRIMARY KEY,
			filename TEXT UNIQUE NOT NULL,
			executed_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
	`
}
