// Package middleware provides HTTP middleware for the nodemap service
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	svcerrors "github.com/R3E-Network/nodemap_service/internal/errors"
	"github.com/R3E-Network/nodemap_service/internal/httputil"
	"github.com/R3E-Network/nodemap_service/internal/logging"
)

// IdentityResolver turns a bearer token into a user id.
type IdentityResolver interface {
	ResolveIdentity(token string) (int64, error)
}

// AuthMiddleware requires a valid bearer token on every request it wraps.
type AuthMiddleware struct {
	resolver IdentityResolver
	logger   *logging.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(resolver IdentityResolver, logger *logging.Logger) *AuthMiddleware {
	if logger == nil {
		logger = logging.NewDefault("auth")
	}
	return &AuthMiddleware{resolver: resolver, logger: logger}
}

// Handler returns the middleware handler
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
		if authHeader == "" {
			m.respondError(w, r, svcerrors.Unauthorized("Missing Authorization Header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			m.respondError(w, r, svcerrors.Unauthorized("Invalid Authorization header format"))
			return
		}

		userID, err := m.resolver.ResolveIdentity(strings.TrimSpace(parts[1]))
		if err != nil {
			m.respondError(w, r, err)
			return
		}

		ctx := logging.WithUserID(r.Context(), strconv.FormatInt(userID, 10))
		m.logger.WithContext(ctx).Debug("Authentication successful")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// respondError sends an error response
func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := svcerrors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = svcerrors.InvalidToken(err)
	}

	httputil.WriteErrorResponse(w, serviceErr.HTTPStatus, serviceErr.Message)

	m.logger.WithContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"status": serviceErr.HTTPStatus,
	}).Warn("Authentication failed")
}
