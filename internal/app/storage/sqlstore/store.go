// Package sqlstore implements the storage interfaces on top of sqlx. Queries
// are written with '?' placeholders and rebound for the active driver, so the
// same Store serves both SQLite and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/nodemap_service/internal/app/storage"
)

// Store implements the storage interfaces backed by a relational database.
type Store struct {
	db *sqlx.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.NodemapStore = (*Store)(nil)
var _ storage.AgentStore = (*Store)(nil)

// New creates a Store using the provided database handle. The schema must
// already exist (see platform/migrations).
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// withTx runs fn inside a transaction. The transaction is rolled back unless
// fn returns nil and the commit succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}
