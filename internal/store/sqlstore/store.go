// Package sqlstore keeps candles in a SQL table through sqlx. The same code
// serves SQLite (mattn/go-sqlite3) and PostgreSQL (lib/pq); queries are
// written with ? placeholders and rebound for the active driver.
package sqlstore

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names as registered with database/sql.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS candles (
		exchange TEXT    NOT NULL,
		symbol   TEXT    NOT NULL,
		tf       INTEGER NOT NULL,
		ts       INTEGER NOT NULL,
		open     REAL,
		high     REAL,
		low      REAL,
		close    REAL,
		volume   REAL,
		PRIMARY KEY (exchange, symbol, tf, ts)
	);
`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS candles (
		exchange TEXT             NOT NULL,
		symbol   TEXT             NOT NULL,
		tf       INTEGER          NOT NULL,
		ts       BIGINT           NOT NULL,
		open     DOUBLE PRECISION,
		high     DOUBLE PRECISION,
		low      DOUBLE PRECISION,
		close    DOUBLE PRECISION,
		volume   DOUBLE PRECISION,
		PRIMARY KEY (exchange, symbol, tf, ts)
	);
`

// Config configures the SQL store.
type Config struct {
	Driver string // DriverSQLite or DriverPostgres
	DSN    string // file path for SQLite, connection string for PostgreSQL
}

// Store reads and writes the candles table.
type Store struct {
	db *sqlx.DB
}

// DB returns the underlying sqlx.DB.
func (s *Store) DB() *sqlx.DB { return s.db }

// Open connects, pings, and creates the schema if it does not exist.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dsn := cfg.DSN
	switch cfg.Driver {
	case DriverSQLite:
		if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s open: %w", cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite {
		// Single writer; WAL lets readers proceed.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s ping: %w", cfg.Driver, err)
	}

	schema := sqliteSchema
	if cfg.Driver == DriverPostgres {
		schema = postgresSchema
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s schema: %w", cfg.Driver, err)
	}

	log.Printf("[sqlstore] opened %s database", cfg.Driver)
	return &Store{db: db}, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	log.Printf("[sqlstore] closing %s database", s.db.DriverName())
	return s.db.Close()
}
