package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/nodemap_service/internal/app/domain/user"
	"github.com/R3E-Network/nodemap_service/internal/app/storage"
	"github.com/R3E-Network/nodemap_service/internal/platform/database"
)

const userColumns = `id, username, email, password_hash, created_at`

type userRow struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r userRow) toDomain() user.User {
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	u.CreatedAt = now()

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		return tx.QueryRowxContext(ctx, s.q(`
			INSERT INTO users (username, email, password_hash, created_at)
			VALUES (?, ?, ?, ?)
			RETURNING id
		`), u.Username, u.Email, u.PasswordHash, u.CreatedAt).Scan(&u.ID)
	})
	if err != nil {
		return user.User{}, classifyUserError(err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (user.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (s *Store) FindUserByLogin(ctx context.Context, login string) (user.User, error) {
	return s.getUser(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = ? OR username = ?
		ORDER BY id
		LIMIT 1
	`, login, login)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, s.q(`DELETE FROM users WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

func (s *Store) getUser(ctx context.Context, query string, args ...any) (user.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, s.q(query), args...); err != nil {
		return user.User{}, notFound(err)
	}
	return row.toDomain(), nil
}

// classifyUserError maps unique violations on the users table to the
// duplicate sentinels. Postgres reports the constraint name, SQLite the
// column, and both contain the column name.
func classifyUserError(err error) error {
	target, ok := database.UniqueViolation(err)
	if !ok {
		return fmt.Errorf("create user: %w", err)
	}
	switch {
	case strings.Contains(target, "username"):
		return storage.ErrDuplicateUsername
	case strings.Contains(target, "email"):
		return storage.ErrDuplicateEmail
	default:
		return fmt.Errorf("create user: %w", err)
	}
}
