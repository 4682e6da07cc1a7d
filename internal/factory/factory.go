package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/EliasAN1/Stacktictoe/internal/dependencies/clock"
	"github.com/EliasAN1/Stacktictoe/internal/dependencies/random"
	"github.com/EliasAN1/Stacktictoe/internal/realtime"
	"github.com/EliasAN1/Stacktictoe/internal/services/dispatch"
	"github.com/EliasAN1/Stacktictoe/internal/services/game"
	"github.com/EliasAN1/Stacktictoe/internal/services/identity"
	"github.com/EliasAN1/Stacktictoe/internal/services/liveness"
	"github.com/EliasAN1/Stacktictoe/internal/services/lobby"
	"github.com/EliasAN1/Stacktictoe/internal/services/matchmaking"
	"github.com/EliasAN1/Stacktictoe/internal/storage"
	"github.com/EliasAN1/Stacktictoe/internal/storage/memory"
	redisstorage "github.com/EliasAN1/Stacktictoe/internal/storage/redis"
	"github.com/EliasAN1/Stacktictoe/internal/web/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock    clock.Clock
	Random   random.Random
	Notifier realtime.Notifier

	// Transport. Nil when the app is built around a test notifier.
	Hub *ws.Hub

	// Services
	Registry    *identity.Registry
	Directory   *lobby.Directory
	Games       *game.Controller
	Matchmaking *matchmaking.Service
	Liveness    *liveness.Manager
	Dispatcher  *dispatch.Dispatcher
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// IdentityConfig configures name reservations. Zero values take defaults.
	IdentityConfig identity.Config
	// LobbyConfig configures offer password hashing. Zero values take defaults.
	LobbyConfig lobby.Config
	// LivenessConfig configures the idle-session reaper. Zero disables it.
	LivenessConfig liveness.Config
	// HubConfig configures the websocket transport
	HubConfig ws.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	hub := ws.NewHub(cfg.HubConfig, logger)
	app := newWithDependencies(store, hub, clock.New(), random.New(), cfg, logger)
	app.Hub = hub
	hub.SetHandler(app.Dispatcher)

	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	notifier realtime.Notifier,
	clk clock.Clock,
	rnd random.Random,
	cfg Config,
	logger *slog.Logger,
) *App {
	identityCfg := cfg.IdentityConfig
	if identityCfg.ReservationGrace == 0 {
		identityCfg = identity.DefaultConfig()
	}

	registry := identity.New(clk, identityCfg, logger)
	directory := lobby.NewDirectory(store, notifier, clk, rnd, cfg.LobbyConfig, logger)
	games := game.NewController(store, registry, notifier, clk, rnd, logger)
	matcher := matchmaking.New(registry, directory, games, notifier, logger)
	manager := liveness.New(registry, directory, games, notifier, clk, cfg.LivenessConfig, logger)
	dispatcher := dispatch.New(registry, directory, games, matcher, manager, notifier, logger)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Notifier:    notifier,
		Registry:    registry,
		Directory:   directory,
		Games:       games,
		Matchmaking: matcher,
		Liveness:    manager,
		Dispatcher:  dispatcher,
	}
}

// Close releases storage resources
func (a *App) Close() error {
	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
