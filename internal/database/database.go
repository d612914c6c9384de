package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Supported SQL drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB wraps the database connection
type DB struct {
	conn   *sqlx.DB
	driver string
}

// New creates a new database connection
func New(driver, dsn string) (*DB, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	if driver == DriverSQLite && !strings.Contains(dsn, "_pragma=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// A single writer keeps SQLite from returning SQLITE_BUSY under
		// concurrent roster updates.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, driver: driver}

	// Initialize tables and run migrations
	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.migrateSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// createTables creates the necessary tables
func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS guild_configs (
			guild_id TEXT NOT NULL PRIMARY KEY,
			vc_id TEXT NOT NULL DEFAULT '',
			session_dm_id TEXT,
			session_dm_name TEXT,
			session_day INTEGER NOT NULL,
			session_time TEXT NOT NULL,
			meeting_room TEXT NOT NULL DEFAULT '',
			first_alert INTEGER NOT NULL,
			second_alert INTEGER NOT NULL,
			alerts BOOLEAN NOT NULL DEFAULT TRUE,
			cancel_session BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS roster_members (
			guild_id TEXT NOT NULL,
			roster TEXT NOT NULL,
			user_id TEXT NOT NULL,
			user_name TEXT NOT NULL,
			joined_at BIGINT NOT NULL,
			PRIMARY KEY (guild_id, roster, user_id)
		)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// migrateSchema handles database schema migrations
func (db *DB) migrateSchema() error {
	migrations := []string{
		// Early deployments had no alerts toggle
		`ALTER TABLE guild_configs ADD COLUMN alerts BOOLEAN NOT NULL DEFAULT TRUE`,

		// Dispatcher lookups by weekday
		`CREATE INDEX IF NOT EXISTS guild_configs_first_alert_idx ON guild_configs (first_alert)`,
		`CREATE INDEX IF NOT EXISTS guild_configs_second_alert_idx ON guild_configs (second_alert)`,
		`CREATE INDEX IF NOT EXISTS guild_configs_session_day_idx ON guild_configs (session_day)`,
	}

	for _, migration := range migrations {
		if _, err := db.conn.Exec(migration); err != nil {
			if isAlreadyExistsError(err) {
				continue
			}
			log.Warn().Err(err).Str("driver", db.driver).Msg("migration failed")
		}
	}

	return nil
}

// isAlreadyExistsError reports whether err comes from idempotent DDL.
func isAlreadyExistsError(err error) bool {
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "already exists") || strings.Contains(value, "duplicate column name")
}
