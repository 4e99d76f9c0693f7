package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tavere/legendgame-go/internal/api"
	"github.com/tavere/legendgame-go/internal/factory"
	"github.com/tavere/legendgame-go/internal/services/auth"
	redisstorage "github.com/tavere/legendgame-go/internal/storage/redis"
	"github.com/tavere/legendgame-go/internal/ws"
)

// Stale socket bindings are swept on this cadence; the websocket layer's
// ping/pong handles ordinary liveness, the sweep catches lost disconnects
const (
	pruneInterval = 1 * time.Minute
	pruneMaxIdle  = 5 * time.Minute
)

func main() {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	secret := os.Getenv("LEGEND_TOKEN_SECRET")
	if secret == "" {
		logger.Error("LEGEND_TOKEN_SECRET is required")
		os.Exit(1)
	}

	// Build factory config from environment
	cfg := factory.Config{
		Logger:      logger,
		StorageType: os.Getenv("LEGEND_STORAGE"),
		AuthConfig: auth.Config{
			SigningKey: []byte(secret),
		},
	}

	if redisURL := os.Getenv("LEGEND_REDIS_URL"); redisURL != "" {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = redisURL
		cfg.RedisConfig = &redisCfg
	}

	// Create application factory
	app, err := factory.New(cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("storage ready", slog.String("mode", app.StorageMode))

	// Create router with the gameplay socket mounted
	gateway := ws.NewGateway(app.Gate, logger)
	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		AuthService:     app.AuthService,
		RankingsService: app.RankingsService,
		StorageMode:     app.StorageMode,
		WSHandler:       gateway.Handler(),
	})

	// Create server
	serverConfig := api.DefaultServerConfig()
	if port := os.Getenv("LEGEND_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			logger.Error("invalid LEGEND_PORT", slog.String("value", port))
			os.Exit(1)
		}
		serverConfig.Port = p
	}
	server := api.NewServer(router, serverConfig, logger)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Sweep stale socket bindings
	go func() {
		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := app.Registry.PruneStale(pruneMaxIdle); n > 0 {
					logger.Info("pruned stale connections", slog.Int("count", n))
				}
			}
		}
	}()

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
			os.Exit(1)
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
}
