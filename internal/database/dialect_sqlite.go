package database

import (
	"database/sql"
	"errors"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const sqliteMigrationsTable = `
	CREATE TABLE IF NOT EXISTS migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT UNIQUE NOT NULL,
		executed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
`

// SQLiteDialect implements Dialect for SQLite through the cgo driver
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

func (d *SQLiteDialect) DSN(config DialectConfig) (string, error) {
	if config.Path == "" {
		return "", errors.New("sqlite path is required")
	}
	return config.Path + "?_foreign_keys=on&_busy_timeout=5000", nil
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	return query
}

func (d *SQLiteDialect) SupportsLastInsertId() bool {
	return true
}

func (d *SQLiteDialect) DefaultPool() PoolConfig {
	return sqlitePool
}

func (d *SQLiteDialect) Prepare(db *sql.DB) error {
	return enableWAL(db)
}

func (d *SQLiteDialect) MigrationsSubdir() string {
	return "sqlite"
}

func (d *SQLiteDialect) CreateMigrationsTableQuery() string {
	return sqliteMigrationsTable
}

// PureSQLiteDialect implements Dialect for SQLite through the cgo-free
// modernc.org/sqlite driver. It shares the SQLite migrations.
type PureSQLiteDialect struct{}

// NewPureSQLiteDialect creates a new cgo-free SQLite dialect
func NewPureSQLiteDialect() *PureSQLiteDialect {
	return &PureSQLiteDialect{}
}

func (d *PureSQLiteDialect) Name() string {
	return "sqlite-purego"
}

func (d *PureSQLiteDialect) DriverName() string {
	return "sqlite"
}

func (d *PureSQLiteDialect) DSN(config DialectConfig) (string, error) {
	if config.Path == "" {
		return "", errors.New("sqlite path is required")
	}
	return config.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", nil
}

func (d *PureSQLiteDialect) RewriteQuery(query string) string {
	return query
}

func (d *PureSQLiteDialect) SupportsLastInsertId() bool {
	return true
}

func (d *PureSQLiteDialect) DefaultPool() PoolConfig {
	return sqlitePool
}

func (d *PureSQLiteDialect) Prepare(db *sql.DB) error {
	return enableWAL(db)
}

func (d *PureSQLiteDialect) MigrationsSubdir() string {
	return "sqlite"
}

func (d *PureSQLiteDialect) CreateMigrationsTableQuery() string {
	return sqliteMigrationsTable
}

// sqlitePool keeps connections open indefinitely; WAL lets readers proceed
// while one writer holds the lock, and busy_timeout in the DSN absorbs the rest.
var sqlitePool = PoolConfig{
	MaxOpenConns: 8,
	MaxIdleConns: 8,
}

func enableWAL(db *sql.DB) error {
	_, err := db.Exec("PRAGMA journal_mode=WAL")
	return err
}
