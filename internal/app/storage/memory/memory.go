package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/R3E-Network/nodemap_service/internal/app/domain/agent"
	"github.com/R3E-Network/nodemap_service/internal/app/domain/nodemap"
	"github.com/R3E-Network/nodemap_service/internal/app/domain/user"
	"github.com/R3E-Network/nodemap_service/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	users    map[int64]user.User
	nodemaps map[int64]nodemap.Nodemap
	agents   map[int64]agent.Agent
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.NodemapStore = (*Store)(nil)
var _ storage.AgentStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:   1,
		users:    make(map[int64]user.User),
		nodemaps: make(map[int64]nodemap.Nodemap),
		agents:   make(map[int64]agent.Agent),
	}
}

func (s *Store) nextIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return user.User{}, storage.ErrDuplicateUsername
		}
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return user.User{}, storage.ErrDuplicateEmail
		}
	}

	u.ID = s.nextIDLocked()
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	return s.findUser(func(u user.User) bool { return u.Username == username })
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	return s.findUser(func(u user.User) bool { return u.Email == email })
}

func (s *Store) FindUserByLogin(_ context.Context, login string) (user.User, error) {
	return s.findUser(func(u user.User) bool { return u.Email == login || u.Username == login })
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.users, id)
	for nmID, nm := range s.nodemaps {
		if nm.UserID == id {
			delete(s.nodemaps, nmID)
		}
	}
	for agentID, a := range s.agents {
		if a.UserID == id {
			delete(s.agents, agentID)
		}
	}
	return nil
}

func (s *Store) findUser(match func(user.User) bool) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		found user.User
		ok    bool
	)
	for _, u := range s.users {
		if match(u) && (!ok || u.ID < found.ID) {
			found, ok = u, true
		}
	}
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return found, nil
}

// NodemapStore implementation -------------------------------------------------

func (s *Store) CreateNodemap(_ context.Context, nm nodemap.Nodemap) (nodemap.Nodemap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[nm.UserID]; !ok {
		return nodemap.Nodemap{}, storage.ErrNotFound
	}
	for _, existing := range s.nodemaps {
		if existing.UserID == nm.UserID && existing.Name == nm.Name {
			return nodemap.Nodemap{}, storage.ErrDuplicateName
		}
	}

	if nm.NodesData == "" {
		nm.NodesData = nodemap.EmptyGraph
	}
	if nm.EdgesData == "" {
		nm.EdgesData = nodemap.EmptyGraph
	}
	nm.ID = s.nextIDLocked()
	nm.CreatedAt = time.Now().UTC()
	s.nodemaps[nm.ID] = nm
	return nm, nil
}

func (s *Store) GetNodemap(_ context.Context, userID, id int64) (nodemap.Nodemap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nm, ok := s.nodemaps[id]
	if !ok || nm.UserID != userID {
		return nodemap.Nodemap{}, storage.ErrNotFound
	}
	return nm, nil
}

func (s *Store) GetNodemapByName(_ context.Context, userID int64, name string) (nodemap.Nodemap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, nm := range s.nodemaps {
		if nm.UserID == userID && nm.Name == name {
			return nm, nil
		}
	}
	return nodemap.Nodemap{}, storage.ErrNotFound
}

func (s *Store) ListNodemaps(_ context.Context, userID int64) ([]nodemap.Nodemap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]nodemap.Nodemap, 0)
	for _, nm := range s.nodemaps {
		if nm.UserID == userID {
			result = append(result, nm)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) SaveNodemapGraph(_ context.Context, userID, id int64, nodes, edges string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nm, ok := s.nodemaps[id]
	if !ok || nm.UserID != userID {
		return storage.ErrNotFound
	}
	nm.NodesData = nodes
	nm.EdgesData = edges
	s.nodemaps[id] = nm
	return nil
}

func (s *Store) ToggleNodemapFavorite(_ context.Context, userID, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nm, ok := s.nodemaps[id]
	if !ok || nm.UserID != userID {
		return false, storage.ErrNotFound
	}
	nm.IsFavorite = !nm.IsFavorite
	s.nodemaps[id] = nm
	return nm.IsFavorite, nil
}

// AgentStore implementation ---------------------------------------------------

func (s *Store) CreateAgent(_ context.Context, a agent.Agent) (agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[a.UserID]; !ok {
		return agent.Agent{}, storage.ErrNotFound
	}
	for _, existing := range s.agents {
		if existing.UserID == a.UserID && existing.Name == a.Name {
			return agent.Agent{}, storage.ErrDuplicateName
		}
	}

	a.ID = s.nextIDLocked()
	a.CreatedAt = time.Now().UTC()
	s.agents[a.ID] = a
	return a, nil
}

func (s *Store) GetAgent(_ context.Context, userID, id int64) (agent.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.agents[id]
	if !ok || a.UserID != userID {
		return agent.Agent{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *Store) GetAgentByName(_ context.Context, userID int64, name string) (agent.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.agents {
		if a.UserID == userID && a.Name == name {
			return a, nil
		}
	}
	return agent.Agent{}, storage.ErrNotFound
}

func (s *Store) ListAgents(_ context.Context, userID int64) ([]agent.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]agent.Agent, 0)
	for _, a := range s.agents {
		if a.UserID == userID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
