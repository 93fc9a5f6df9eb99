package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/playerinfo-proxy/internal/api/handler"
	"github.com/mcoot/playerinfo-proxy/internal/api/middleware"
	"github.com/mcoot/playerinfo-proxy/internal/api/response"
	"github.com/mcoot/playerinfo-proxy/internal/metrics"
	sharedmw "github.com/mcoot/playerinfo-proxy/internal/middleware"
	"github.com/mcoot/playerinfo-proxy/internal/services/auth"
	"github.com/mcoot/playerinfo-proxy/internal/services/playerdata"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	AuthService *auth.Service
	PlayerData  *playerdata.Service
	// Refresher is optional; list endpoints use it to nudge backends
	Refresher handler.Refresher
	// ExposeMetrics mounts the Prometheus handler at /metrics
	ExposeMetrics bool
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Logger)
	dataHandler := handler.NewDataHandler(cfg.PlayerData, cfg.Refresher)

	// Create middleware
	requireLogin := middleware.RequireLogin(cfg.AuthService)
	loggingMiddleware := sharedmw.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)
	metricsMiddleware := middleware.Metrics(cfg.Metrics)

	if cfg.ExposeMetrics {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	// API subrouter with common middleware
	api := r.PathPrefix("/api").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)
	api.Use(metricsMiddleware)

	// Auth routes (no session required)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/check", authHandler.Check).Methods(http.MethodGet)
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Player data routes
	data := api.NewRoute().Subrouter()
	data.Use(requireLogin)
	data.HandleFunc("/servers", dataHandler.Servers).Methods(http.MethodGet)
	data.HandleFunc("/players", dataHandler.Players).Methods(http.MethodGet)
	data.HandleFunc("/player/{name}", dataHandler.Player).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
