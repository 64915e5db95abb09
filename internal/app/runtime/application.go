// Package runtime builds the service from configuration and manages the HTTP
// server lifecycle.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	app "github.com/R3E-Network/nodemap_service/internal/app"
	"github.com/R3E-Network/nodemap_service/internal/app/auth"
	"github.com/R3E-Network/nodemap_service/internal/app/httpapi"
	"github.com/R3E-Network/nodemap_service/internal/app/storage/sqlstore"
	"github.com/R3E-Network/nodemap_service/internal/config"
	"github.com/R3E-Network/nodemap_service/internal/logging"
	"github.com/R3E-Network/nodemap_service/internal/platform/database"
	"github.com/R3E-Network/nodemap_service/internal/platform/migrations"
)

const serviceName = "nodemap-service"

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logging.Logger
	db         *sqlx.DB
	app        *app.Application
	handler    http.Handler
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
	errCh    chan error
}

// NewApplication opens the database, ensures the schema exists and builds the
// HTTP handler. The server is not started.
func NewApplication(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logging.New(serviceName, cfg.Logging.Level, cfg.Logging.Format)

	db, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, database.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	application, err := build(ctx, cfg, db, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return application, nil
}

func build(ctx context.Context, cfg *config.Config, db *sqlx.DB, log *logging.Logger) (*Application, error) {
	if err := migrations.Apply(ctx, db, cfg.Database.Driver); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	if err != nil {
		return nil, fmt.Errorf("configure tokens: %w", err)
	}

	store := sqlstore.New(db)
	application, err := app.New(app.Stores{
		Users:    store,
		Nodemaps: store,
		Agents:   store,
	}, tokens, auth.NewPasswordHasher(0), log)
	if err != nil {
		return nil, fmt.Errorf("build application: %w", err)
	}

	handler := httpapi.NewHandler(application, httpapi.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		HealthCheck:    db.PingContext,
	})

	return &Application{
		cfg:     cfg,
		log:     log,
		db:      db,
		app:     application,
		handler: handler,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           handler,
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       60 * time.Second,
		},
	}, nil
}

// App returns the wired application services.
func (a *Application) App() *app.Application {
	return a.app
}

// Handler returns the root HTTP handler.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// Addr returns the bound listen address once Start has succeeded.
func (a *Application) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Start binds the listener and serves in the background.
func (a *Application) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return errors.New("server already started")
	}

	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.httpServer.Addr, err)
	}
	a.listener = ln
	a.errCh = make(chan error, 1)

	go func() {
		a.log.WithField("addr", ln.Addr().String()).Info("HTTP server listening")
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.errCh <- err
		}
		close(a.errCh)
	}()
	return nil
}

// Run starts the HTTP server and blocks until the context is cancelled or the
// server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-a.errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server and closes the database.
func (a *Application) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var shutdownErr error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		shutdownErr = fmt.Errorf("shutdown http server: %w", err)
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}

	a.log.Info("server stopped")
	return shutdownErr
}
