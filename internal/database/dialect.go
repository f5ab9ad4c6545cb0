package database

import (
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// Dialect hides the differences between the supported SQL engines. Queries
// are written once with ? placeholders and rewritten per dialect.
type Dialect interface {
	Name() string
	DriverName() string
	DSN(config DialectConfig) (string, error)

	// RewriteQuery converts ? placeholders to the engine's syntax
	RewriteQuery(query string) string

	// SupportsLastInsertId is false when inserts need RETURNING id
	SupportsLastInsertId() bool

	// DefaultPool is the pool sizing used where DialectConfig leaves it unset
	DefaultPool() PoolConfig

	// Prepare runs per-database setup statements after the first ping
	Prepare(db *sql.DB) error

	MigrationsSubdir() string
	CreateMigrationsTableQuery() string
}

// DialectConfig holds the connection settings for a dialect
type DialectConfig struct {
	Path string // sqlite file
	URL  string // postgres and mysql DSN
	Pool PoolConfig
}

// PoolConfig sizes the connection pool. Zero fields mean "use the default".
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// withDefaults fills p's zero fields from def
func (p PoolConfig) withDefaults(def PoolConfig) PoolConfig {
	if p.MaxOpenConns == 0 {
		p.MaxOpenConns = def.MaxOpenConns
	}
	if p.MaxIdleConns == 0 {
		p.MaxIdleConns = def.MaxIdleConns
	}
	if p.MaxIdleConns > p.MaxOpenConns && p.MaxOpenConns > 0 {
		p.MaxIdleConns = p.MaxOpenConns
	}
	if p.ConnMaxLifetime == 0 {
		p.ConnMaxLifetime = def.ConnMaxLifetime
	}
	if p.ConnMaxIdleTime == 0 {
		p.ConnMaxIdleTime = def.ConnMaxIdleTime
	}
	return p
}

func (p PoolConfig) apply(db *sql.DB) {
	db.SetMaxOpenConns(p.MaxOpenConns)
	db.SetMaxIdleConns(p.MaxIdleConns)
	db.SetConnMaxLifetime(p.ConnMaxLifetime)
	db.SetConnMaxIdleTime(p.ConnMaxIdleTime)
}

var serverPool = PoolConfig{
	MaxOpenConns:    25,
	MaxIdleConns:    5,
	ConnMaxLifetime: 5 * time.Minute,
	ConnMaxIdleTime: time.Minute,
}

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, ...
// leaving question marks inside quoted literals and identifiers alone.
func rewritePlaceholdersToNumbered(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
