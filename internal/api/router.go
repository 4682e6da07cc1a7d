package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/EliasAN1/Stacktictoe/internal/api/handler"
	"github.com/EliasAN1/Stacktictoe/internal/api/middleware"
	"github.com/EliasAN1/Stacktictoe/internal/services/identity"
	"github.com/EliasAN1/Stacktictoe/internal/web/ws"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	Registry       identity.RegistryInterface
	Hub            *ws.Hub
	AllowedOrigins []string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(handler.NotFound)

	// Create handlers
	usernameHandler := handler.NewUsernameHandler(cfg.Registry, cfg.Logger)
	healthHandler := handler.NewHealthHandler(cfg.Hub)

	// Common middleware
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Name reservation sits at the root for existing clients
	r.HandleFunc("/register-username", usernameHandler.Register).Methods(http.MethodPost, http.MethodOptions)

	// Realtime endpoint
	r.Handle("/ws", cfg.Hub).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)

	return r
}
