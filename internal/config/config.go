package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcoot/stockgame/internal/model"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// MinSecretBytes is the shortest accepted session signing key
const MinSecretBytes = 32

// Config is the root configuration for a server process.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	Session SessionConfig `yaml:"session"`
	Trading TradingConfig `yaml:"trading"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug|info|warn|error
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Type        string `yaml:"type"`
	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`
}

// SessionConfig holds token settings.
type SessionConfig struct {
	// Secret is hex-encoded or raw. Empty means the server generates a
	// random key at startup, so tokens do not survive a restart.
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

// TradingConfig holds account and trade settings.
type TradingConfig struct {
	StartingBalance string        `yaml:"starting_balance"`
	LockTimeout     time.Duration `yaml:"lock_timeout"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Storage.Type == "" {
		c.Storage.Type = StorageMemory
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = time.Hour
	}
	if c.Trading.StartingBalance == "" {
		c.Trading.StartingBalance = "50000"
	}
	if c.Trading.LockTimeout == 0 {
		c.Trading.LockTimeout = 5 * time.Second
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			errs = append(errs, errors.New("storage.redis_url is required for redis storage"))
		}
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("storage.database_url is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type %q must be memory, redis or postgres", c.Storage.Type))
	}

	if c.Session.Secret != "" && len(c.SecretBytes()) < MinSecretBytes {
		errs = append(errs, fmt.Errorf("session.secret must be at least %d bytes", MinSecretBytes))
	}
	if c.Session.TTL < 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}

	if balance, err := c.StartingBalance(); err != nil {
		errs = append(errs, err)
	} else if balance.IsNegative() {
		errs = append(errs, errors.New("trading.starting_balance must not be negative"))
	} else if !model.FitsMoneyScale(balance) {
		errs = append(errs, fmt.Errorf("trading.starting_balance must have at most %d decimal places", model.MoneyScale))
	}
	if c.Trading.LockTimeout < 0 {
		errs = append(errs, errors.New("trading.lock_timeout must be positive"))
	}

	return errors.Join(errs...)
}

// LogLevel parses the configured level
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return level, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// StartingBalance parses the configured starting balance
func (c *Config) StartingBalance() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.Trading.StartingBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("trading.starting_balance: %w", err)
	}
	return d, nil
}

// SecretBytes returns the signing key. A secret that decodes as hex is
// used decoded; anything else is used as raw bytes. Nil when unset.
func (c *Config) SecretBytes() []byte {
	if c.Session.Secret == "" {
		return nil
	}
	if b, err := hex.DecodeString(c.Session.Secret); err == nil {
		return b
	}
	return []byte(c.Session.Secret)
}
