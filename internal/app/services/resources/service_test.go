package resources

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/nodemap_service/internal/app/domain/user"
	"github.com/R3E-Network/nodemap_service/internal/app/storage"
	"github.com/R3E-Network/nodemap_service/internal/app/storage/memory"
	"github.com/R3E-Network/nodemap_service/internal/app/storage/sqlstore"
	svcerrors "github.com/R3E-Network/nodemap_service/internal/errors"
	"github.com/R3E-Network/nodemap_service/internal/logging"
	"github.com/R3E-Network/nodemap_service/internal/platform/database"
	"github.com/R3E-Network/nodemap_service/internal/platform/migrations"
)

type backend interface {
	storage.UserStore
	storage.NodemapStore
	storage.AgentStore
}

func backends(t *testing.T) map[string]backend {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenInMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Apply(ctx, db, database.DriverSQLite))

	return map[string]backend{
		"memory": memory.New(),
		"sqlite": sqlstore.New(db),
	}
}

func seedUsers(t *testing.T, store storage.UserStore) (int64, int64) {
	t.Helper()
	ctx := context.Background()
	alice, err := store.CreateUser(ctx, user.User{Username: "alice", Email: "alice@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	bob, err := store.CreateUser(ctx, user.User{Username: "bob", Email: "bob@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	return alice.ID, bob.ID
}

func codeOf(err error) svcerrors.ErrorCode {
	if se := svcerrors.GetServiceError(err); se != nil {
		return se.Code
	}
	return ""
}

func TestNodemapLifecycle(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			alice, bob := seedUsers(t, store)
			svc := New(store, store, logging.NewDiscard("resources"))

			nm, err := svc.CreateNodemap(ctx, alice, "Trip", "Plan", "Summer")
			require.NoError(t, err)
			assert.Equal(t, "[]", nm.NodesData)
			assert.False(t, nm.IsFavorite)

			_, err = svc.CreateNodemap(ctx, alice, "Trip", "Plan", "Again")
			require.Error(t, err)
			assert.Equal(t, svcerrors.CodeConflict, codeOf(err))
			assert.Equal(t, "You already have a nodemap named 'Trip'", svcerrors.GetServiceError(err).Message)

			_, err = svc.CreateNodemap(ctx, bob, "Trip", "Plan", "Bob's")
			require.NoError(t, err)

			nodes := json.RawMessage(`[{"id":"1","position":{"x":0,"y":0},"data":{"label":"Start"}}]`)
			edges := json.RawMessage(`[{"id":"e1","source":"1","target":"2"}]`)
			require.NoError(t, svc.SaveNodemapData(ctx, alice, nm.ID, nodes, edges))

			detail, err := svc.GetNodemapData(ctx, alice, nm.ID)
			require.NoError(t, err)
			assert.JSONEq(t, string(nodes), string(detail.NodesData))
			assert.JSONEq(t, string(edges), string(detail.EdgesData))
			assert.Equal(t, "Summer", detail.Description)

			_, err = svc.GetNodemapData(ctx, bob, nm.ID)
			assert.Equal(t, svcerrors.CodeNotFound, codeOf(err))
			err = svc.SaveNodemapData(ctx, bob, nm.ID, nodes, edges)
			assert.Equal(t, svcerrors.CodeNotFound, codeOf(err))

			first, err := svc.ToggleFavorite(ctx, alice, nm.ID)
			require.NoError(t, err)
			second, err := svc.ToggleFavorite(ctx, alice, nm.ID)
			require.NoError(t, err)
			assert.True(t, first)
			assert.False(t, second)

			list, err := svc.ListNodemaps(ctx, alice)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, nm.ID, list[0].ID)
		})
	}
}

func TestSaveNodemapValidation(t *testing.T) {
	store := memory.New()
	alice, _ := seedUsers(t, store)
	svc := New(store, store, logging.NewDiscard("resources"))
	ctx := context.Background()

	nm, err := svc.CreateNodemap(ctx, alice, "Trip", "Plan", "Summer")
	require.NoError(t, err)

	err = svc.SaveNodemapData(ctx, alice, 0, json.RawMessage(`[]`), json.RawMessage(`[]`))
	assert.Equal(t, "Nodemap ID is required", svcerrors.GetServiceError(err).Message)

	err = svc.SaveNodemapData(ctx, alice, nm.ID, json.RawMessage(`{"a":1}`), json.RawMessage(`[]`))
	assert.Equal(t, "'nodes' must be a list", svcerrors.GetServiceError(err).Message)

	err = svc.SaveNodemapData(ctx, alice, nm.ID, json.RawMessage(`[]`), nil)
	assert.Equal(t, "'edges' must be a list", svcerrors.GetServiceError(err).Message)

	require.NoError(t, svc.SaveNodemapData(ctx, alice, nm.ID, json.RawMessage(`[]`), json.RawMessage(`[]`)))
}

func TestCreateValidation(t *testing.T) {
	store := memory.New()
	alice, _ := seedUsers(t, store)
	svc := New(store, store, logging.NewDiscard("resources"))
	ctx := context.Background()

	for _, tt := range []struct {
		name, goal, description, message string
	}{
		{"", "g", "d", "Nodemap name is required"},
		{"n", " ", "d", "Nodemap goal is required"},
		{"n", "g", "", "Nodemap description is required"},
	} {
		_, err := svc.CreateNodemap(ctx, alice, tt.name, tt.goal, tt.description)
		assert.Equal(t, tt.message, svcerrors.GetServiceError(err).Message)
	}

	for _, tt := range []struct {
		name, typ, model, prompt, message string
	}{
		{"", "t", "m", "p", "Agent name is required"},
		{"n", "", "m", "p", "Agent type is required"},
		{"n", "t", "", "p", "Agent model is required"},
		{"n", "t", "m", "", "System prompt is required"},
	} {
		_, err := svc.CreateAgent(ctx, alice, tt.name, tt.typ, tt.model, tt.prompt)
		assert.Equal(t, tt.message, svcerrors.GetServiceError(err).Message)
	}
}

func TestAgents(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			alice, bob := seedUsers(t, store)
			svc := New(store, store, logging.NewDiscard("resources"))

			a, err := svc.CreateAgent(ctx, alice, "Helper", "chat", "gpt-4o", "Be brief.")
			require.NoError(t, err)
			assert.NotZero(t, a.ID)

			_, err = svc.CreateAgent(ctx, alice, "Helper", "chat", "gpt-4o", "Other")
			assert.Equal(t, "You already have an agent named 'Helper'", svcerrors.GetServiceError(err).Message)

			_, err = svc.CreateAgent(ctx, bob, "Helper", "chat", "gpt-4o", "Other")
			require.NoError(t, err)

			list, err := svc.ListAgents(ctx, alice)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "Be brief.", list[0].SystemPrompt)
		})
	}
}

func TestToggleAndGetRequireID(t *testing.T) {
	store := memory.New()
	alice, _ := seedUsers(t, store)
	svc := New(store, store, logging.NewDiscard("resources"))
	ctx := context.Background()

	_, err := svc.ToggleFavorite(ctx, alice, 0)
	assert.Equal(t, msgIDRequired, svcerrors.GetServiceError(err).Message)
	_, err = svc.GetNodemapData(ctx, alice, 0)
	assert.Equal(t, msgIDRequired, svcerrors.GetServiceError(err).Message)

	_, err = svc.ToggleFavorite(ctx, alice, 404)
	assert.Equal(t, msgEditNotFound, svcerrors.GetServiceError(err).Message)
	_, err = svc.GetNodemapData(ctx, alice, 404)
	assert.Equal(t, msgViewNotFound, svcerrors.GetServiceError(err).Message)
}

func TestGetNodemapDataCorruptPayload(t *testing.T) {
	store := memory.New()
	alice, _ := seedUsers(t, store)
	svc := New(store, store, logging.NewDiscard("resources"))
	ctx := context.Background()

	nm, err := svc.CreateNodemap(ctx, alice, "Trip", "Plan", "Summer")
	require.NoError(t, err)
	require.NoError(t, store.SaveNodemapGraph(ctx, alice, nm.ID, `{"not":"a list"}`, `[]`))

	_, err = svc.GetNodemapData(ctx, alice, nm.ID)
	se := svcerrors.GetServiceError(err)
	require.NotNil(t, se)
	assert.Equal(t, svcerrors.CodeDataCorruption, se.Code)
	assert.Equal(t, 500, se.HTTPStatus)
	assert.Equal(t, "Invalid data format for this nodemap", se.Message)
}
