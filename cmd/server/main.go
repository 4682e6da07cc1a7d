package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/EliasAN1/Stacktictoe/internal/api"
	"github.com/EliasAN1/Stacktictoe/internal/factory"
	"github.com/EliasAN1/Stacktictoe/internal/services/identity"
	"github.com/EliasAN1/Stacktictoe/internal/services/liveness"
	"github.com/EliasAN1/Stacktictoe/internal/services/lobby"
	redisstorage "github.com/EliasAN1/Stacktictoe/internal/storage/redis"
	"github.com/EliasAN1/Stacktictoe/internal/web/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).ExecuteContext(ctx))
}

func serve(ctx context.Context, cfg *Config) error {
	logger := cfg.logger()
	slog.SetDefault(logger)

	factoryCfg := factory.Config{
		Logger:         logger,
		StorageType:    cfg.storage,
		IdentityConfig: identity.Config{ReservationGrace: cfg.reservationGrace},
		LobbyConfig:    lobby.Config{PasswordCost: cfg.passwordCost},
		LivenessConfig: liveness.Config{SessionIdleTimeout: cfg.sessionIdleTimeout},
		HubConfig:      ws.Config{AllowedOrigins: cfg.allowedOrigins},
	}

	// Configure Redis if storage type is redis
	if cfg.storage == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.redisURL
		factoryCfg.RedisConfig = &redisCfg
	}

	// Create application factory
	app, err := factory.New(factoryCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		Registry:       app.Registry,
		Hub:            app.Hub,
		AllowedOrigins: cfg.allowedOrigins,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.bind
	serverConfig.Port = cfg.port
	server := api.NewServer(router, serverConfig, logger)
	server.OnShutdown(app.Hub.CloseAll)

	reaperCtx, cancelReaper := context.WithCancel(ctx)
	defer cancelReaper()
	if cfg.sessionIdleTimeout > 0 {
		go app.Dispatcher.RunReaper(reaperCtx, cfg.sessionIdleTimeout/2)
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			return err
		}
	}

	logger.Info("server stopped")
	return nil
}
