package storage

import (
	"context"
	"errors"

	"github.com/R3E-Network/nodemap_service/internal/app/domain/agent"
	"github.com/R3E-Network/nodemap_service/internal/app/domain/nodemap"
	"github.com/R3E-Network/nodemap_service/internal/app/domain/user"
)

var (
	// ErrNotFound is returned when a record does not exist or is not owned by
	// the requesting user.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateName is returned when an owner already has a resource with
	// the same name.
	ErrDuplicateName = errors.New("name already used by owner")
)

// UserStore persists user credentials.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id int64) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	// FindUserByLogin matches either the email or the username column.
	FindUserByLogin(ctx context.Context, login string) (user.User, error)
	// DeleteUser removes the user and, by cascade, everything it owns.
	DeleteUser(ctx context.Context, id int64) error
}

// NodemapStore persists nodemaps. Every lookup and mutation is scoped to the
// owning user.
type NodemapStore interface {
	CreateNodemap(ctx context.Context, nm nodemap.Nodemap) (nodemap.Nodemap, error)
	GetNodemap(ctx context.Context, userID, id int64) (nodemap.Nodemap, error)
	GetNodemapByName(ctx context.Context, userID int64, name string) (nodemap.Nodemap, error)
	ListNodemaps(ctx context.Context, userID int64) ([]nodemap.Nodemap, error)
	SaveNodemapGraph(ctx context.Context, userID, id int64, nodes, edges string) error
	ToggleNodemapFavorite(ctx context.Context, userID, id int64) (bool, error)
}

// AgentStore persists agents, scoped to the owning user.
type AgentStore interface {
	CreateAgent(ctx context.Context, a agent.Agent) (agent.Agent, error)
	GetAgent(ctx context.Context, userID, id int64) (agent.Agent, error)
	GetAgentByName(ctx context.Context, userID int64, name string) (agent.Agent, error)
	ListAgents(ctx context.Context, userID int64) ([]agent.Agent, error)
}
