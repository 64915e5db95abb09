package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/R3E-Network/nodemap_service/internal/app/auth"
	svcerrors "github.com/R3E-Network/nodemap_service/internal/errors"
	"github.com/R3E-Network/nodemap_service/internal/logging"
)

// tokenResolver adapts a TokenManager the same way the account service does.
type tokenResolver struct {
	tokens *auth.TokenManager
}

func (r tokenResolver) ResolveIdentity(token string) (int64, error) {
	userID, err := r.tokens.Parse(token)
	if err != nil {
		return 0, svcerrors.InvalidToken(err)
	}
	return userID, nil
}

func newTestTokens(t *testing.T, secret string) *auth.TokenManager {
	t.Helper()
	tokens, err := auth.NewTokenManager(secret, time.Hour, "nodemap-test")
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	return tokens
}

func protected(t *testing.T, tokens *auth.TokenManager) http.Handler {
	t.Helper()
	mw := NewAuthMiddleware(tokenResolver{tokens: tokens}, logging.NewDiscard("test"))
	return mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(logging.GetUserID(r.Context())))
	}))
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	tokens := newTestTokens(t, "secret")
	token, _, err := tokens.Issue(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/user_data", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	protected(t, tokens).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "42" {
		t.Errorf("expected user id 42 in context, got %q", rec.Body.String())
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	tokens := newTestTokens(t, "secret")
	foreign, _, err := newTestTokens(t, "other-secret").Issue(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"missing header", "", "Missing Authorization Header"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "Invalid Authorization header format"},
		{"bearer without token", "Bearer ", "Invalid Authorization header format"},
		{"garbage token", "Bearer abc.def.ghi", "Invalid or expired token"},
		{"foreign signature", "Bearer " + foreign, "Invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/user_data", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			protected(t, tokens).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if got := errorBody(t, rec); got != tt.message {
				t.Errorf("expected %q, got %q", tt.message, got)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	cors := NewCORSMiddleware([]string{"http://localhost:3000", " http://app.example.com/ "})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := cors.Handler(next)

	req := httptest.NewRequest(http.MethodOptions, "/creation/createmap", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight: expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("unexpected allow origin %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://app.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://app.example.com" {
		t.Errorf("trimmed origin should be allowed")
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("simple request should reach handler")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("unknown origin must not be allowed")
	}
}

func TestLoggingMiddlewarePropagatesTraceID(t *testing.T) {
	var seen string
	handler := LoggingMiddleware(logging.NewDiscard("test"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.GetTraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set(TraceHeader, "trace-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "trace-123" {
		t.Errorf("expected trace id in context, got %q", seen)
	}
	if rec.Header().Get(TraceHeader) != "trace-123" {
		t.Errorf("expected trace id echoed in response")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Header().Get(TraceHeader) == "" {
		t.Errorf("expected generated trace id")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(logging.NewDiscard("test"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := errorBody(t, rec); got != "Internal server error" {
		t.Errorf("unexpected message %q", got)
	}
}
