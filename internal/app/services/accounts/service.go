// Package accounts implements registration, login and identity resolution.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/R3E-Network/nodemap_service/internal/app/auth"
	"github.com/R3E-Network/nodemap_service/internal/app/domain/agent"
	"github.com/R3E-Network/nodemap_service/internal/app/domain/nodemap"
	"github.com/R3E-Network/nodemap_service/internal/app/domain/user"
	"github.com/R3E-Network/nodemap_service/internal/app/metrics"
	"github.com/R3E-Network/nodemap_service/internal/app/storage"
	svcerrors "github.com/R3E-Network/nodemap_service/internal/errors"
	"github.com/R3E-Network/nodemap_service/internal/logging"
)

const minPasswordLength = 8

// Tokens issues and verifies identity tokens.
type Tokens interface {
	Issue(userID int64) (string, time.Time, error)
	Parse(token string) (int64, error)
}

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// Session is the result of a successful login.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	Profile
}

// Profile is a user together with everything it owns.
type Profile struct {
	User     user.Public
	Nodemaps []nodemap.Summary
	Agents   []agent.Agent
}

// Service handles user accounts and identity tokens.
type Service struct {
	users    storage.UserStore
	nodemaps storage.NodemapStore
	agents   storage.AgentStore
	tokens   Tokens
	hasher   Hasher
	log      *logging.Logger
}

// New constructs the account service.
func New(users storage.UserStore, nodemaps storage.NodemapStore, agents storage.AgentStore, tokens Tokens, hasher Hasher, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("accounts")
	}
	if hasher == nil {
		hasher = auth.NewPasswordHasher(0)
	}
	return &Service{users: users, nodemaps: nodemaps, agents: agents, tokens: tokens, hasher: hasher, log: log}
}

// Register validates the input and creates a user. The password hash never
// leaves the service.
func (s *Service) Register(ctx context.Context, username, email, password string) (user.Public, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := validateRegistration(username, email, password); err != nil {
		metrics.RecordAuthAttempt("register", false)
		return user.Public{}, err
	}

	if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
		metrics.RecordAuthAttempt("register", false)
		return user.Public{}, svcerrors.Conflict("Username already exists")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return user.Public{}, svcerrors.Internal("An error occurred while saving the user", err)
	}
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		metrics.RecordAuthAttempt("register", false)
		return user.Public{}, svcerrors.Conflict("Email address already registered")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return user.Public{}, svcerrors.Internal("An error occurred while saving the user", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return user.Public{}, svcerrors.Validation("Password must be at most 72 bytes long")
		}
		return user.Public{}, svcerrors.Internal("An error occurred while saving the user", err)
	}

	created, err := s.users.CreateUser(ctx, user.User{Username: username, Email: email, PasswordHash: hash})
	switch {
	case errors.Is(err, storage.ErrDuplicateUsername):
		metrics.RecordAuthAttempt("register", false)
		return user.Public{}, svcerrors.Conflict("Username already exists")
	case errors.Is(err, storage.ErrDuplicateEmail):
		metrics.RecordAuthAttempt("register", false)
		return user.Public{}, svcerrors.Conflict("Email address already registered")
	case err != nil:
		s.log.WithContext(ctx).WithError(err).Error("persist user failed")
		return user.Public{}, svcerrors.Internal("An error occurred while saving the user", err)
	}

	metrics.RecordAuthAttempt("register", true)
	s.log.WithContext(ctx).
		WithField("user_id", created.ID).
		WithField("username", created.Username).
		Info("user registered")
	return created.Public(), nil
}

// Login verifies credentials and issues an access token. login matches either
// the username or the email.
func (s *Service) Login(ctx context.Context, login, password string) (Session, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return Session{}, svcerrors.Validation("Email or Username is required")
	}
	if password == "" {
		return Session{}, svcerrors.Validation("Password is required")
	}

	u, err := s.users.FindUserByLogin(ctx, login)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return Session{}, svcerrors.Internal("Login failed", err)
	}
	if err != nil || !s.hasher.Verify(u.PasswordHash, password) {
		metrics.RecordAuthAttempt("login", false)
		s.log.LogSecurityEvent(ctx, "login_failed", map[string]interface{}{"login": login})
		return Session{}, svcerrors.Unauthorized("Invalid email/username or password")
	}

	token, expiresAt, err := s.tokens.Issue(u.ID)
	if err != nil {
		return Session{}, svcerrors.Internal("Login failed", err)
	}

	profile, err := s.profile(ctx, u)
	if err != nil {
		return Session{}, err
	}

	metrics.RecordAuthAttempt("login", true)
	s.log.WithContext(ctx).WithField("user_id", u.ID).Info("user logged in")
	return Session{AccessToken: token, ExpiresAt: expiresAt, Profile: profile}, nil
}

// ResolveIdentity verifies a bearer token and returns the user id it names.
func (s *Service) ResolveIdentity(token string) (int64, error) {
	if strings.TrimSpace(token) == "" {
		return 0, svcerrors.Unauthorized("Missing Authorization Header")
	}
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return 0, svcerrors.InvalidToken(err)
	}
	return userID, nil
}

// UserData returns the caller and everything it owns.
func (s *Service) UserData(ctx context.Context, userID int64) (Profile, error) {
	u, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return Profile{}, svcerrors.NotFound("User not found")
	}
	if err != nil {
		return Profile{}, svcerrors.Internal("Failed to load user data", err)
	}
	return s.profile(ctx, u)
}

// Logout acknowledges a logout. Tokens are stateless, so nothing is revoked;
// the client discards its token.
func (s *Service) Logout(ctx context.Context, userID int64) string {
	s.log.WithContext(ctx).WithField("user_id", userID).Info("user logged out")
	return "Logout successful"
}

func (s *Service) profile(ctx context.Context, u user.User) (Profile, error) {
	maps, err := s.nodemaps.ListNodemaps(ctx, u.ID)
	if err != nil {
		return Profile{}, svcerrors.Internal("Failed to load nodemaps", err)
	}
	agents, err := s.agents.ListAgents(ctx, u.ID)
	if err != nil {
		return Profile{}, svcerrors.Internal("Failed to load agents", err)
	}

	summaries := make([]nodemap.Summary, 0, len(maps))
	for _, nm := range maps {
		summaries = append(summaries, nm.Summary())
	}
	if agents == nil {
		agents = []agent.Agent{}
	}
	return Profile{User: u.Public(), Nodemaps: summaries, Agents: agents}, nil
}

func validateRegistration(username, email, password string) error {
	switch {
	case username == "":
		return svcerrors.Validation("Username is required")
	case password == "":
		return svcerrors.Validation("Password is required")
	case email == "":
		return svcerrors.Validation("Email is required")
	case !strings.Contains(email, "@"):
		return svcerrors.Validation("Invalid email format (must contain @)")
	}
	return validatePassword(password)
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return svcerrors.Validation(fmt.Sprintf("Password must be at least %d characters long", minPasswordLength))
	}
	var hasDigit, hasLetter bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLetter(r):
			hasLetter = true
		}
	}
	if !hasDigit {
		return svcerrors.Validation("Password must contain at least one digit")
	}
	if !hasLetter {
		return svcerrors.Validation("Password must contain at least one letter")
	}
	return nil
}
