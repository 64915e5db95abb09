// Package migrations creates the service schema when it is absent.
package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/R3E-Network/nodemap_service/internal/platform/database"
)

// Execer is satisfied by *sql.DB, *sql.Tx and their sqlx counterparts.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		CONSTRAINT uq_users_username UNIQUE (username),
		CONSTRAINT uq_users_email UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS nodemaps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		goal TEXT NOT NULL,
		description TEXT,
		created_at TIMESTAMP NOT NULL,
		is_favorite BOOLEAN NOT NULL DEFAULT 0,
		nodes_data TEXT NOT NULL DEFAULT '[]',
		edges_data TEXT NOT NULL DEFAULT '[]',
		CONSTRAINT uq_nodemaps_user_name UNIQUE (user_id, name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_nodemaps_user_id ON nodemaps(user_id)`,
	`CREATE TABLE IF NOT EXISTS agents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		model TEXT NOT NULL,
		system_prompt TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		CONSTRAINT uq_agents_user_name UNIQUE (user_id, name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_agents_user_id ON agents(user_id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT uq_users_username UNIQUE (username),
		CONSTRAINT uq_users_email UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS nodemaps (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		goal TEXT NOT NULL,
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
		nodes_data TEXT NOT NULL DEFAULT '[]',
		edges_data TEXT NOT NULL DEFAULT '[]',
		CONSTRAINT uq_nodemaps_user_name UNIQUE (user_id, name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_nodemaps_user_id ON nodemaps(user_id)`,
	`CREATE TABLE IF NOT EXISTS agents (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		model TEXT NOT NULL,
		system_prompt TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT uq_agents_user_name UNIQUE (user_id, name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_agents_user_id ON agents(user_id)`,
}

// Statements returns the schema for the given driver.
func Statements(driver string) ([]string, error) {
	switch driver {
	case database.DriverSQLite:
		return sqliteSchema, nil
	case database.DriverPostgres:
		return postgresSchema, nil
	default:
		return nil, fmt.Errorf("no schema for driver %q", driver)
	}
}

// Apply executes the schema statements in order. Every statement is
// idempotent, so Apply is safe to run on each start.
func Apply(ctx context.Context, db Execer, driver string) error {
	stmts, err := Statements(driver)
	if err != nil {
		return err
	}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}
	return nil
}
