package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLDialect implements Dialect for MySQL
type MySQLDialect struct{}

// NewMySQLDialect creates a new MySQL dialect
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) Name() string {
	return "mysql"
}

func (d *MySQLDialect) DriverName() string {
	return "mysql"
}

// DSN parses the configured DSN and forces the options the repositories rely
// on: DATETIME columns scanned as UTC time.Time and multi-statement migrations.
func (d *MySQLDialect) DSN(config DialectConfig) (string, error) {
	if config.URL == "" {
		return "", errors.New("DATABASE_URL is required for mysql")
	}
	cfg, err := mysql.ParseDSN(config.URL)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.MultiStatements = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

func (d *MySQLDialect) RewriteQuery(query string) string {
	return query
}

func (d *MySQLDialect) SupportsLastInsertId() bool {
	return true
}

// MySQL servers close idle connections after wait_timeout, so connections
// are recycled well before the usual 8h default.
func (d *MySQLDialect) DefaultPool() PoolConfig {
	pool := serverPool
	pool.ConnMaxLifetime = 3 * time.Minute
	return pool
}

func (d *MySQLDialect) Prepare(db *sql.DB) error {
	_, err := db.Exec("SET FOREIGN_KEY_CHECKS = 1")
	return err
}

func (d *MySQLDialect) MigrationsSubdir() string {
	return "mysql"
}

func (d *MySQLDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			filename VARCHAR(255) UNIQUE NOT NULL,
			executed_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6)
		);
	`
}
