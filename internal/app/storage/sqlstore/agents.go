package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/nodemap_service/internal/app/domain/agent"
	"github.com/R3E-Network/nodemap_service/internal/app/storage"
	"github.com/R3E-Network/nodemap_service/internal/platform/database"
)

const agentColumns = `id, user_id, name, type, model, system_prompt, created_at`

type agentRow struct {
	ID           int64     `db:"id"`
	UserID       int64     `db:"user_id"`
	Name         string    `db:"name"`
	Type         string    `db:"type"`
	Model        string    `db:"model"`
	SystemPrompt string    `db:"system_prompt"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r agentRow) toDomain() agent.Agent {
	return agent.Agent{
		ID:           r.ID,
		UserID:       r.UserID,
		Name:         r.Name,
		Type:         r.Type,
		Model:        r.Model,
		SystemPrompt: r.SystemPrompt,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

func (s *Store) CreateAgent(ctx context.Context, a agent.Agent) (agent.Agent, error) {
	a.CreatedAt = now()

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		return tx.QueryRowxContext(ctx, s.q(`
			INSERT INTO agents (user_id, name, type, model, system_prompt, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id
		`), a.UserID, a.Name, a.Type, a.Model, a.SystemPrompt, a.CreatedAt).Scan(&a.ID)
	})
	if err != nil {
		if _, dup := database.UniqueViolation(err); dup {
			return agent.Agent{}, storage.ErrDuplicateName
		}
		return agent.Agent{}, fmt.Errorf("create agent: %w", err)
	}
	return a, nil
}

func (s *Store) GetAgent(ctx context.Context, userID, id int64) (agent.Agent, error) {
	var row agentRow
	err := s.db.GetContext(ctx, &row, s.q(`
		SELECT `+agentColumns+`
		FROM agents
		WHERE id = ? AND user_id = ?
	`), id, userID)
	if err != nil {
		return agent.Agent{}, notFound(err)
	}
	return row.toDomain(), nil
}

func (s *Store) GetAgentByName(ctx context.Context, userID int64, name string) (agent.Agent, error) {
	var row agentRow
	err := s.db.GetContext(ctx, &row, s.q(`
		SELECT `+agentColumns+`
		FROM agents
		WHERE user_id = ? AND name = ?
	`), userID, name)
	if err != nil {
		return agent.Agent{}, notFound(err)
	}
	return row.toDomain(), nil
}

func (s *Store) ListAgents(ctx context.Context, userID int64) ([]agent.Agent, error) {
	var rows []agentRow
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT `+agentColumns+`
		FROM agents
		WHERE user_id = ?
		ORDER BY id
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}

	result := make([]agent.Agent, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}
