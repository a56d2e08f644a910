package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/stockgame/internal/dependencies/clock"
	"github.com/mcoot/stockgame/internal/dependencies/random"
	"github.com/mcoot/stockgame/internal/services/account"
	"github.com/mcoot/stockgame/internal/services/auth"
	"github.com/mcoot/stockgame/internal/services/catalog"
	"github.com/mcoot/stockgame/internal/services/ledger"
	"github.com/mcoot/stockgame/internal/services/locking"
	"github.com/mcoot/stockgame/internal/services/trade"
	"github.com/mcoot/stockgame/internal/storage"
	"github.com/mcoot/stockgame/internal/storage/memory"
	pgstorage "github.com/mcoot/stockgame/internal/storage/postgres"
	redisstorage "github.com/mcoot/stockgame/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// generatedSecretBytes is the size of the signing key made when none is configured
const generatedSecretBytes = 32

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Locks          *locking.AccountLocks
	AccountService *account.Service
	CatalogService *catalog.Service
	Ledger         *ledger.Ledger
	TradeEngine    *trade.Engine
	AuthService    *auth.Service

	closer io.Closer
}

// Close releases the storage backend's connections
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If Secret is empty, a random key is generated
	AuthConfig auth.Config
	// AccountConfig holds registration settings (optional)
	// If zero value, defaults to account.DefaultConfig()
	AccountConfig account.Config
	// LockTimeout bounds how long a trade waits for its account (optional)
	LockTimeout time.Duration
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds database settings (required if StorageType is "postgres")
	PostgresConfig *pgstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// Create storage based on type
	var (
		store  storage.Storage
		closer io.Closer
	)
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
		store, closer = redisStore, redisStore
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		pgStore, err := pgstorage.New(*cfg.PostgresConfig)
		if err != nil {
			return nil, err
		}
		store, closer = pgStore, pgStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'postgres'")
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	accountCfg := cfg.AccountConfig
	if accountCfg == (account.Config{}) {
		accountCfg = account.DefaultConfig()
	}

	// Login compares against hashes made at registration, so both use
	// the same cost unless told otherwise
	authCfg := cfg.AuthConfig
	if authCfg.TTL == 0 {
		authCfg.TTL = auth.DefaultConfig().TTL
	}
	if authCfg.HashCost == 0 {
		authCfg.HashCost = accountCfg.HashCost
	}

	app, err := newWithDependencies(store, clk, rnd, authCfg, accountCfg, cfg.LockTimeout, logger)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	app.closer = closer
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	authCfg auth.Config,
	accountCfg account.Config,
	lockTimeout time.Duration,
	logger *slog.Logger,
) (*App, error) {
	if len(authCfg.Secret) == 0 {
		secret, err := rnd.Bytes(generatedSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		authCfg.Secret = secret
		logger.Warn("no session secret configured; generated a random one, sessions will not survive a restart")
	}

	// Create services
	locks := locking.New(lockTimeout)
	holdings := ledger.New(store)
	accountService := account.New(store, locks, clk, logger, accountCfg)
	catalogService := catalog.New(store, clk, logger)
	tradeEngine := trade.New(store, holdings, locks, clk, logger)
	authService, err := auth.New(store, clk, logger, authCfg)
	if err != nil {
		return nil, err
	}

	return &App{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		Locks:          locks,
		AccountService: accountService,
		CatalogService: catalogService,
		Ledger:         holdings,
		TradeEngine:    tradeEngine,
		AuthService:    authService,
	}, nil
}
