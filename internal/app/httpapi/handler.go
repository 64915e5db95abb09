package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	app "github.com/R3E-Network/nodemap_service/internal/app"
	"github.com/R3E-Network/nodemap_service/internal/app/metrics"
	"github.com/R3E-Network/nodemap_service/internal/httputil"
	"github.com/R3E-Network/nodemap_service/internal/logging"
	"github.com/R3E-Network/nodemap_service/internal/middleware"
)

// Options tunes the router. The zero value is usable.
type Options struct {
	// AllowedOrigins lists browser origins permitted by CORS. "*" allows any.
	AllowedOrigins []string
	// HealthCheck backs /healthz. Nil reports healthy.
	HealthCheck func(ctx context.Context) error
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app    *app.Application
	log    *logging.Logger
	health func(ctx context.Context) error
}

// NewHandler returns the service router: the /auth and /creation groups plus
// the operational endpoints, wrapped in CORS.
func NewHandler(application *app.Application, opts Options) http.Handler {
	log := application.Logger()
	h := &handler{app: application, log: log, health: opts.HealthCheck}
	authMW := middleware.NewAuthMiddleware(application.Accounts, log)

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.NotFound(w, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	router.Use(
		middleware.RecoveryMiddleware(log),
		middleware.LoggingMiddleware(log),
		middleware.MetricsMiddleware(),
	)

	router.HandleFunc("/", h.index).Methods(http.MethodGet)
	router.HandleFunc("/api/status", h.status).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	authRoutes := router.PathPrefix("/auth").Subrouter()
	authRoutes.HandleFunc("/register", h.register).Methods(http.MethodPost)
	authRoutes.HandleFunc("/login", h.login).Methods(http.MethodPost)
	authRoutes.Handle("/user_data", authMW.Handler(http.HandlerFunc(h.userData))).Methods(http.MethodGet)
	authRoutes.Handle("/logout", authMW.Handler(http.HandlerFunc(h.logout))).Methods(http.MethodPost)

	creation := router.PathPrefix("/creation").Subrouter()
	creation.Use(authMW.Handler)
	creation.HandleFunc("/createmap", h.createNodemap).Methods(http.MethodPost)
	creation.HandleFunc("/createagent", h.createAgent).Methods(http.MethodPost)
	creation.HandleFunc("/savenodemap", h.saveNodemap).Methods(http.MethodPost)
	creation.HandleFunc("/getnodemaps", h.listNodemaps).Methods(http.MethodGet)
	creation.HandleFunc("/togglenodemapfavorite", h.toggleFavorite).Methods(http.MethodPost)
	creation.HandleFunc("/getnodemapdata", h.getNodemapData).Methods(http.MethodPost)

	return middleware.NewCORSMiddleware(opts.AllowedOrigins).Handler(router)
}

func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Hello, World!"))
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "OK",
		"message": "API is running",
	})
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			h.log.WithContext(r.Context()).WithError(err).Warn("health check failed")
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError writes err and logs failures that are not the caller's.
func (h *handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if status := statusOf(err); status >= http.StatusInternalServerError {
		h.log.WithContext(r.Context()).WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	httputil.WriteError(w, err)
}
