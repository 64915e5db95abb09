// Package resources manages the nodemaps and agents owned by a user. Every
// operation is scoped to the calling user; resources owned by someone else
// behave exactly like missing ones.
package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/R3E-Network/nodemap_service/internal/app/domain/agent"
	"github.com/R3E-Network/nodemap_service/internal/app/domain/nodemap"
	"github.com/R3E-Network/nodemap_service/internal/app/metrics"
	"github.com/R3E-Network/nodemap_service/internal/app/storage"
	svcerrors "github.com/R3E-Network/nodemap_service/internal/errors"
	"github.com/R3E-Network/nodemap_service/internal/logging"
)

const (
	msgEditNotFound = "Nodemap not found or you do not have permission to edit it"
	msgViewNotFound = "Nodemap not found or you do not have permission to view it"
	msgIDRequired   = "Nodemap ID ('id') is required in the request body"
)

// Service manages per-user nodemaps and agents.
type Service struct {
	nodemaps storage.NodemapStore
	agents   storage.AgentStore
	log      *logging.Logger
}

// New constructs the resource service.
func New(nodemaps storage.NodemapStore, agents storage.AgentStore, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("resources")
	}
	return &Service{nodemaps: nodemaps, agents: agents, log: log}
}

// CreateNodemap creates an empty, non-favorite nodemap.
func (s *Service) CreateNodemap(ctx context.Context, userID int64, name, goal, description string) (nodemap.Nodemap, error) {
	name = strings.TrimSpace(name)
	goal = strings.TrimSpace(goal)
	description = strings.TrimSpace(description)

	switch {
	case name == "":
		return nodemap.Nodemap{}, svcerrors.Validation("Nodemap name is required")
	case goal == "":
		return nodemap.Nodemap{}, svcerrors.Validation("Nodemap goal is required")
	case description == "":
		return nodemap.Nodemap{}, svcerrors.Validation("Nodemap description is required")
	}

	duplicate := svcerrors.Conflict(fmt.Sprintf("You already have a nodemap named '%s'", name))
	if _, err := s.nodemaps.GetNodemapByName(ctx, userID, name); err == nil {
		return nodemap.Nodemap{}, duplicate
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nodemap.Nodemap{}, svcerrors.Internal("An error occurred while creating the nodemap", err)
	}

	created, err := s.nodemaps.CreateNodemap(ctx, nodemap.Nodemap{
		UserID:      userID,
		Name:        name,
		Goal:        goal,
		Description: description,
		NodesData:   nodemap.EmptyGraph,
		EdgesData:   nodemap.EmptyGraph,
	})
	if errors.Is(err, storage.ErrDuplicateName) {
		return nodemap.Nodemap{}, duplicate
	}
	if err != nil {
		s.log.WithContext(ctx).WithError(err).Error("create nodemap failed")
		return nodemap.Nodemap{}, svcerrors.Internal("An error occurred while creating the nodemap", err)
	}

	metrics.RecordResourceCreated("nodemap")
	s.log.WithContext(ctx).
		WithField("nodemap_id", created.ID).
		WithField("name", created.Name).
		Info("nodemap created")
	return created, nil
}

// CreateAgent creates an agent configuration.
func (s *Service) CreateAgent(ctx context.Context, userID int64, name, agentType, model, systemPrompt string) (agent.Agent, error) {
	name = strings.TrimSpace(name)
	agentType = strings.TrimSpace(agentType)
	model = strings.TrimSpace(model)

	switch {
	case name == "":
		return agent.Agent{}, svcerrors.Validation("Agent name is required")
	case agentType == "":
		return agent.Agent{}, svcerrors.Validation("Agent type is required")
	case model == "":
		return agent.Agent{}, svcerrors.Validation("Agent model is required")
	case strings.TrimSpace(systemPrompt) == "":
		return agent.Agent{}, svcerrors.Validation("System prompt is required")
	}

	duplicate := svcerrors.Conflict(fmt.Sprintf("You already have an agent named '%s'", name))
	if _, err := s.agents.GetAgentByName(ctx, userID, name); err == nil {
		return agent.Agent{}, duplicate
	} else if !errors.Is(err, storage.ErrNotFound) {
		return agent.Agent{}, svcerrors.Internal("An error occurred while creating the agent", err)
	}

	created, err := s.agents.CreateAgent(ctx, agent.Agent{
		UserID:       userID,
		Name:         name,
		Type:         agentType,
		Model:        model,
		SystemPrompt: systemPrompt,
	})
	if errors.Is(err, storage.ErrDuplicateName) {
		return agent.Agent{}, duplicate
	}
	if err != nil {
		s.log.WithContext(ctx).WithError(err).Error("create agent failed")
		return agent.Agent{}, svcerrors.Internal("An error occurred while creating the agent", err)
	}

	metrics.RecordResourceCreated("agent")
	s.log.WithContext(ctx).
		WithField("agent_id", created.ID).
		WithField("name", created.Name).
		Info("agent created")
	return created, nil
}

// SaveNodemapData replaces both graph payloads of a nodemap. Both must be
// JSON arrays; an empty array is allowed.
func (s *Service) SaveNodemapData(ctx context.Context, userID, nodemapID int64, nodes, edges json.RawMessage) error {
	if nodemapID == 0 {
		return svcerrors.Validation("Nodemap ID is required")
	}
	nodesData, err := nodemap.EncodeGraph(nodes)
	if err != nil {
		return svcerrors.Validation("'nodes' must be a list")
	}
	edgesData, err := nodemap.EncodeGraph(edges)
	if err != nil {
		return svcerrors.Validation("'edges' must be a list")
	}

	err = s.nodemaps.SaveNodemapGraph(ctx, userID, nodemapID, nodesData, edgesData)
	if errors.Is(err, storage.ErrNotFound) {
		s.log.WithContext(ctx).WithField("nodemap_id", nodemapID).Warn("save on missing or foreign nodemap")
		return svcerrors.NotFound(msgEditNotFound)
	}
	if err != nil {
		s.log.WithContext(ctx).WithError(err).WithField("nodemap_id", nodemapID).Error("save nodemap failed")
		return svcerrors.Internal("An error occurred while saving nodemap data", err)
	}

	metrics.RecordGraphSave(len(nodesData) + len(edgesData))
	s.log.WithContext(ctx).WithField("nodemap_id", nodemapID).Debug("nodemap data saved")
	return nil
}

// ListNodemaps returns summaries of the caller's nodemaps without payloads.
func (s *Service) ListNodemaps(ctx context.Context, userID int64) ([]nodemap.Summary, error) {
	maps, err := s.nodemaps.ListNodemaps(ctx, userID)
	if err != nil {
		return nil, svcerrors.Internal("An error occurred while fetching nodemaps", err)
	}
	summaries := make([]nodemap.Summary, 0, len(maps))
	for _, nm := range maps {
		summaries = append(summaries, nm.Summary())
	}
	return summaries, nil
}

// ListAgents returns the caller's agents.
func (s *Service) ListAgents(ctx context.Context, userID int64) ([]agent.Agent, error) {
	agents, err := s.agents.ListAgents(ctx, userID)
	if err != nil {
		return nil, svcerrors.Internal("An error occurred while fetching agents", err)
	}
	if agents == nil {
		agents = []agent.Agent{}
	}
	return agents, nil
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (s *Service) ToggleFavorite(ctx context.Context, userID, nodemapID int64) (bool, error) {
	if nodemapID == 0 {
		return false, svcerrors.Validation(msgIDRequired)
	}
	favorite, err := s.nodemaps.ToggleNodemapFavorite(ctx, userID, nodemapID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, svcerrors.NotFound(msgEditNotFound)
	}
	if err != nil {
		return false, svcerrors.Internal("An error occurred while toggling favorite status", err)
	}
	return favorite, nil
}

// GetNodemapData returns a nodemap with its decoded graph payload.
func (s *Service) GetNodemapData(ctx context.Context, userID, nodemapID int64) (nodemap.Detail, error) {
	if nodemapID == 0 {
		return nodemap.Detail{}, svcerrors.Validation(msgIDRequired)
	}
	nm, err := s.nodemaps.GetNodemap(ctx, userID, nodemapID)
	if errors.Is(err, storage.ErrNotFound) {
		return nodemap.Detail{}, svcerrors.NotFound(msgViewNotFound)
	}
	if err != nil {
		return nodemap.Detail{}, svcerrors.Internal("An error occurred while fetching nodemap data", err)
	}

	detail, err := nm.Detail()
	if err != nil {
		s.log.WithContext(ctx).WithError(err).WithField("nodemap_id", nodemapID).Error("stored graph payload is corrupt")
		return nodemap.Detail{}, svcerrors.DataCorruption("Invalid data format for this nodemap", err)
	}
	return detail, nil
}
