package app

import (
	"errors"

	"github.com/R3E-Network/nodemap_service/internal/app/services/accounts"
	"github.com/R3E-Network/nodemap_service/internal/app/services/resources"
	"github.com/R3E-Network/nodemap_service/internal/app/storage"
	"github.com/R3E-Network/nodemap_service/internal/app/storage/memory"
	"github.com/R3E-Network/nodemap_service/internal/logging"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users    storage.UserStore
	Nodemaps storage.NodemapStore
	Agents   storage.AgentStore
}

// Application ties domain services together.
type Application struct {
	log *logging.Logger

	Accounts  *accounts.Service
	Resources *resources.Service
}

// New builds a fully initialised application with the provided stores.
// tokens is required; a nil hasher selects bcrypt at the default cost.
func New(stores Stores, tokens accounts.Tokens, hasher accounts.Hasher, log *logging.Logger) (*Application, error) {
	if tokens == nil {
		return nil, errors.New("token manager is required")
	}
	if log == nil {
		log = logging.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Nodemaps == nil {
		stores.Nodemaps = mem
	}
	if stores.Agents == nil {
		stores.Agents = mem
	}

	return &Application{
		log:       log,
		Accounts:  accounts.New(stores.Users, stores.Nodemaps, stores.Agents, tokens, hasher, log),
		Resources: resources.New(stores.Nodemaps, stores.Agents, log),
	}, nil
}

// Logger returns the application logger.
func (a *Application) Logger() *logging.Logger {
	return a.log
}
