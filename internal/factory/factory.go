package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/tavere/legendgame-go/internal/dependencies/clock"
	"github.com/tavere/legendgame-go/internal/gate"
	"github.com/tavere/legendgame-go/internal/registry"
	"github.com/tavere/legendgame-go/internal/services/auth"
	"github.com/tavere/legendgame-go/internal/services/rankings"
	syncsvc "github.com/tavere/legendgame-go/internal/services/sync"
	"github.com/tavere/legendgame-go/internal/storage"
	"github.com/tavere/legendgame-go/internal/storage/memory"
	redisstorage "github.com/tavere/legendgame-go/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	// StorageTypeAuto probes Redis at startup and falls back to memory
	// when it is unreachable
	StorageTypeAuto = "auto"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Store
	// StorageMode is the backend actually in use after probing
	StorageMode string

	// External dependencies
	Clock clock.Clock

	// Services
	AuthService     *auth.Service
	SyncService     *syncsvc.Service
	RankingsService *rankings.Service
	Registry        *registry.Registry
	Gate            *gate.Gate
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service.
	// SigningKey is required.
	AuthConfig auth.Config
	// GateConfig holds session gate settings (optional)
	GateConfig gate.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("auto", "memory" or "redis")
	// If empty, defaults to "auto"
	StorageType string
	// RedisConfig holds Redis connection settings (required for "redis",
	// used by "auto" when probing)
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	if len(cfg.AuthConfig.SigningKey) == 0 {
		return nil, errors.New("AuthConfig.SigningKey is required")
	}

	store, mode, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	clk := clock.New()
	return newWithDependencies(store, mode, clk, cfg, logger), nil
}

// newStore selects the storage backend. In auto mode a failed Redis
// probe degrades to memory rather than refusing to start; the trade is
// explicit in the log: state will not survive a restart.
func newStore(cfg Config, logger *slog.Logger) (storage.Store, string, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeAuto
	}

	redisCfg := redisstorage.DefaultConfig()
	if cfg.RedisConfig != nil {
		redisCfg = *cfg.RedisConfig
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), StorageTypeMemory, nil
	case StorageTypeRedis:
		store, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, "", err
		}
		return store, StorageTypeRedis, nil
	case StorageTypeAuto:
		store, err := redisstorage.New(redisCfg)
		if err != nil {
			logger.Warn("redis unreachable, falling back to in-memory storage; state will not survive restart",
				slog.String("url", redisCfg.URL),
				slog.Any("error", err),
			)
			return memory.New(), StorageTypeMemory, nil
		}
		return store, StorageTypeRedis, nil
	default:
		return nil, "", errors.New("invalid StorageType: must be 'auto', 'memory' or 'redis'")
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Store, mode string, clk clock.Clock, cfg Config, logger *slog.Logger) *App {
	authService := auth.New(store, clk, cfg.AuthConfig, logger)
	syncService := syncsvc.New(store, clk, logger)
	rankingsService := rankings.New(store, logger)
	reg := registry.New(clk, logger)

	gateCfg := cfg.GateConfig
	if gateCfg.SyncCooldown == 0 {
		gateCfg = gate.DefaultConfig()
	}
	sessionGate := gate.New(authService, store, reg, syncService, clk, gateCfg, logger)

	return &App{
		Storage:         store,
		StorageMode:     mode,
		Clock:           clk,
		AuthService:     authService,
		SyncService:     syncService,
		RankingsService: rankingsService,
		Registry:        reg,
		Gate:            sessionGate,
	}
}
