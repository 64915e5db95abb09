// Package logging provides structured logging with request-scoped context.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	// TraceIDKey holds the request trace id.
	TraceIDKey contextKey = "trace_id"
	// UserIDKey holds the authenticated user id.
	UserIDKey contextKey = "user_id"
)

// Logger wraps logrus with the service name attached to every entry.
type Logger struct {
	*logrus.Logger
	service string
}

// New creates a logger for service. Unknown levels fall back to info; format
// is "json" or "text".
func New(service, level, format string) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)

	if strings.EqualFold(strings.TrimSpace(format), "text") {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}

	return &Logger{Logger: base, service: service}
}

// NewDefault creates an info-level JSON logger.
func NewDefault(service string) *Logger {
	return New(service, "info", "json")
}

// NewDiscard creates a logger that drops all output. Used by tests.
func NewDiscard(service string) *Logger {
	l := New(service, "panic", "json")
	l.SetOutput(io.Discard)
	return l
}

// Service returns the service name attached to entries.
func (l *Logger) Service() string {
	return l.service
}

// WithContext returns an entry carrying the service name plus the trace and
// user ids found in ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("service", l.service)
	if ctx == nil {
		return entry
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		entry = entry.WithField("trace_id", traceID)
	}
	if userID := GetUserID(ctx); userID != "" {
		entry = entry.WithField("user_id", userID)
	}
	return entry
}

// LogRequest records one completed HTTP request.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	})
	switch {
	case status >= 500:
		entry.Error("HTTP request")
	case status >= 400:
		entry.Warn("HTTP request")
	default:
		entry.Info("HTTP request")
	}
}

// LogSecurityEvent records an authentication-relevant event.
func (l *Logger) LogSecurityEvent(ctx context.Context, event string, fields map[string]interface{}) {
	l.WithContext(ctx).WithFields(fields).WithField("security_event", event).Warn("Security event")
}

// NewTraceID returns a fresh trace id.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores traceID in ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace id stored in ctx, if any.
func GetTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(TraceIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID returns the authenticated user id stored in ctx, if any.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok {
		return v
	}
	return ""
}
