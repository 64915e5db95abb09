package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/R3E-Network/nodemap_service/internal/app/auth"
	"github.com/R3E-Network/nodemap_service/internal/app/domain/agent"
	"github.com/R3E-Network/nodemap_service/internal/app/domain/nodemap"
	"github.com/R3E-Network/nodemap_service/internal/app/domain/user"
	"github.com/R3E-Network/nodemap_service/internal/app/storage/memory"
	svcerrors "github.com/R3E-Network/nodemap_service/internal/errors"
	"github.com/R3E-Network/nodemap_service/internal/logging"
)

func newService(t *testing.T) (*Service, *memory.Store, *auth.TokenManager) {
	t.Helper()
	store := memory.New()
	tokens, err := auth.NewTokenManager("test-secret", 15*time.Minute, "nodemap-test")
	require.NoError(t, err)
	svc := New(store, store, store, tokens, auth.NewPasswordHasher(bcrypt.MinCost), logging.NewDiscard("accounts"))
	return svc, store, tokens
}

func assertCode(t *testing.T, err error, code svcerrors.ErrorCode, message string) {
	t.Helper()
	se := svcerrors.GetServiceError(err)
	require.NotNil(t, se, "expected service error, got %v", err)
	assert.Equal(t, code, se.Code)
	if message != "" {
		assert.Equal(t, message, se.Message)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, store, tokens := newService(t)
	ctx := context.Background()

	pub, err := svc.Register(ctx, "alice", "alice@example.com", "abc12345")
	require.NoError(t, err)
	assert.Equal(t, "alice", pub.Username)
	assert.NotZero(t, pub.ID)

	stored, err := store.GetUser(ctx, pub.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "abc12345", stored.PasswordHash)

	for _, login := range []string{"alice", "alice@example.com"} {
		session, err := svc.Login(ctx, login, "abc12345")
		require.NoError(t, err)
		assert.Equal(t, pub, session.User)
		assert.NotNil(t, session.Nodemaps)
		assert.NotNil(t, session.Agents)

		userID, err := tokens.Parse(session.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, pub.ID, userID)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name                      string
		username, email, password string
		message                   string
	}{
		{"missing username", "", "a@x.io", "abc12345", "Username is required"},
		{"missing password first", "alice", "", "", "Password is required"},
		{"missing email", "alice", "", "abc12345", "Email is required"},
		{"email without at", "alice", "alice.example.com", "abc12345", "Invalid email format (must contain @)"},
		{"short", "alice", "a@x.io", "abc", "Password must be at least 8 characters long"},
		{"no digit", "alice", "a@x.io", "abcdefgh", "Password must contain at least one digit"},
		{"no letter", "alice", "a@x.io", "12345678", "Password must contain at least one letter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.email, tt.password)
			assertCode(t, err, svcerrors.CodeValidation, tt.message)
		})
	}
}

func TestRegisterConflicts(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "abc12345")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "bob", "bob@example.com", "abc12345")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "new@example.com", "abc12345")
	assertCode(t, err, svcerrors.CodeConflict, "Username already exists")

	_, err = svc.Register(ctx, "carol", "alice@example.com", "abc12345")
	assertCode(t, err, svcerrors.CodeConflict, "Email address already registered")

	_, err = svc.Register(ctx, "bob", "alice@example.com", "abc12345")
	assertCode(t, err, svcerrors.CodeConflict, "Username already exists")
}

func TestLoginFailures(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice", "alice@example.com", "abc12345")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "", "abc12345")
	assertCode(t, err, svcerrors.CodeValidation, "Email or Username is required")

	_, err = svc.Login(ctx, "alice", "")
	assertCode(t, err, svcerrors.CodeValidation, "Password is required")

	_, err = svc.Login(ctx, "alice", "wrong1234")
	assertCode(t, err, svcerrors.CodeUnauthorized, "Invalid email/username or password")

	_, err = svc.Login(ctx, "nobody", "abc12345")
	assertCode(t, err, svcerrors.CodeUnauthorized, "Invalid email/username or password")
}

func TestResolveIdentity(t *testing.T) {
	svc, _, tokens := newService(t)

	token, _, err := tokens.Issue(7)
	require.NoError(t, err)
	userID, err := svc.ResolveIdentity(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)

	_, err = svc.ResolveIdentity("")
	assertCode(t, err, svcerrors.CodeUnauthorized, "")

	_, err = svc.ResolveIdentity("garbage")
	assertCode(t, err, svcerrors.CodeInvalidToken, "")
}

func TestUserData(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	pub, err := svc.Register(ctx, "alice", "alice@example.com", "abc12345")
	require.NoError(t, err)
	_, err = store.CreateNodemap(ctx, nodemap.Nodemap{UserID: pub.ID, Name: "Trip", Goal: "Plan", Description: "d"})
	require.NoError(t, err)
	_, err = store.CreateAgent(ctx, agent.Agent{UserID: pub.ID, Name: "Helper", Type: "chat", Model: "m", SystemPrompt: "p"})
	require.NoError(t, err)

	profile, err := svc.UserData(ctx, pub.ID)
	require.NoError(t, err)
	require.Len(t, profile.Nodemaps, 1)
	assert.Equal(t, "Trip", profile.Nodemaps[0].Name)
	require.Len(t, profile.Agents, 1)
	assert.Equal(t, "Helper", profile.Agents[0].Name)

	require.NoError(t, store.DeleteUser(ctx, pub.ID))
	_, err = svc.UserData(ctx, pub.ID)
	assertCode(t, err, svcerrors.CodeNotFound, "User not found")

	assert.Equal(t, "Logout successful", svc.Logout(ctx, pub.ID))
}

type failingUsers struct {
	*memory.Store
}

func (failingUsers) CreateUser(context.Context, user.User) (user.User, error) {
	return user.User{}, errors.New("disk full")
}

func TestRegisterStorageFailure(t *testing.T) {
	store := memory.New()
	tokens, err := auth.NewTokenManager("s", time.Minute, "")
	require.NoError(t, err)
	svc := New(failingUsers{store}, store, store, tokens, auth.NewPasswordHasher(bcrypt.MinCost), logging.NewDiscard("accounts"))

	_, err = svc.Register(context.Background(), "alice", "alice@example.com", "abc12345")
	assertCode(t, err, svcerrors.CodeInternal, "An error occurred while saving the user")
}
