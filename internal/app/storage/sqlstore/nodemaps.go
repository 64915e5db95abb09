package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/nodemap_service/internal/app/domain/nodemap"
	"github.com/R3E-Network/nodemap_service/internal/app/storage"
	"github.com/R3E-Network/nodemap_service/internal/platform/database"
)

const nodemapColumns = `id, user_id, name, goal, description, created_at, is_favorite, nodes_data, edges_data`

type nodemapRow struct {
	ID          int64          `db:"id"`
	UserID      int64          `db:"user_id"`
	Name        string         `db:"name"`
	Goal        string         `db:"goal"`
	Description sql.NullString `db:"description"`
	CreatedAt   time.Time      `db:"created_at"`
	IsFavorite  bool           `db:"is_favorite"`
	NodesData   string         `db:"nodes_data"`
	EdgesData   string         `db:"edges_data"`
}

func (r nodemapRow) toDomain() nodemap.Nodemap {
	return nodemap.Nodemap{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		Goal:        r.Goal,
		Description: r.Description.String,
		CreatedAt:   r.CreatedAt.UTC(),
		IsFavorite:  r.IsFavorite,
		NodesData:   r.NodesData,
		EdgesData:   r.EdgesData,
	}
}

func (s *Store) CreateNodemap(ctx context.Context, nm nodemap.Nodemap) (nodemap.Nodemap, error) {
	nm.CreatedAt = now()
	if nm.NodesData == "" {
		nm.NodesData = nodemap.EmptyGraph
	}
	if nm.EdgesData == "" {
		nm.EdgesData = nodemap.EmptyGraph
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		return tx.QueryRowxContext(ctx, s.q(`
			INSERT INTO nodemaps (user_id, name, goal, description, created_at, is_favorite, nodes_data, edges_data)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`), nm.UserID, nm.Name, nm.Goal, nm.Description, nm.CreatedAt, nm.IsFavorite, nm.NodesData, nm.EdgesData).Scan(&nm.ID)
	})
	if err != nil {
		if _, dup := database.UniqueViolation(err); dup {
			return nodemap.Nodemap{}, storage.ErrDuplicateName
		}
		return nodemap.Nodemap{}, fmt.Errorf("create nodemap: %w", err)
	}
	return nm, nil
}

func (s *Store) GetNodemap(ctx context.Context, userID, id int64) (nodemap.Nodemap, error) {
	var row nodemapRow
	err := s.db.GetContext(ctx, &row, s.q(`
		SELECT `+nodemapColumns+`
		FROM nodemaps
		WHERE id = ? AND user_id = ?
	`), id, userID)
	if err != nil {
		return nodemap.Nodemap{}, notFound(err)
	}
	return row.toDomain(), nil
}

func (s *Store) GetNodemapByName(ctx context.Context, userID int64, name string) (nodemap.Nodemap, error) {
	var row nodemapRow
	err := s.db.GetContext(ctx, &row, s.q(`
		SELECT `+nodemapColumns+`
		FROM nodemaps
		WHERE user_id = ? AND name = ?
	`), userID, name)
	if err != nil {
		return nodemap.Nodemap{}, notFound(err)
	}
	return row.toDomain(), nil
}

func (s *Store) ListNodemaps(ctx context.Context, userID int64) ([]nodemap.Nodemap, error) {
	var rows []nodemapRow
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT `+nodemapColumns+`
		FROM nodemaps
		WHERE user_id = ?
		ORDER BY id
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("list nodemaps: %w", err)
	}

	result := make([]nodemap.Nodemap, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) SaveNodemapGraph(ctx context.Context, userID, id int64, nodes, edges string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, s.q(`
			UPDATE nodemaps
			SET nodes_data = ?, edges_data = ?
			WHERE id = ? AND user_id = ?
		`), nodes, edges, id, userID)
		if err != nil {
			return fmt.Errorf("save nodemap graph: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

func (s *Store) ToggleNodemapFavorite(ctx context.Context, userID, id int64) (bool, error) {
	var favorite bool
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, s.q(`
			UPDATE nodemaps
			SET is_favorite = NOT is_favorite
			WHERE id = ? AND user_id = ?
			RETURNING is_favorite
		`), id, userID).Scan(&favorite)
		if err != nil {
			return notFound(err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return favorite, nil
}
