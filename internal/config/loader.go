package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable holding the config file path
const FileEnv = "STOCKGAME_CONFIG"

// LookupFunc reads an environment variable
type LookupFunc func(key string) (string, bool)

// Load reads configuration from the process environment
func Load() (*Config, error) {
	return LoadFrom(os.Getenv(FileEnv), os.LookupEnv)
}

// LoadFrom reads the YAML file at path (if non-empty), applies
// environment overrides from lookup, fills defaults and validates.
func LoadFrom(path string, lookup LookupFunc) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		// Expand ${VAR} environment variables
		expanded := os.Expand(string(data), func(key string) string {
			v, _ := lookup(key)
			return v
		})

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	if v, ok := lookup("STOCKGAME_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STOCKGAME_PORT: %w", err)
		}
		c.Server.Port = port
	}
	str("STOCKGAME_HOST", &c.Server.Host)
	str("STOCKGAME_LOG_LEVEL", &c.Log.Level)
	str("STOCKGAME_STORAGE", &c.Storage.Type)
	str("STOCKGAME_REDIS_URL", &c.Storage.RedisURL)
	str("STOCKGAME_DATABASE_URL", &c.Storage.DatabaseURL)
	str("STOCKGAME_SESSION_SECRET", &c.Session.Secret)
	str("STOCKGAME_STARTING_BALANCE", &c.Trading.StartingBalance)

	if err := dur("STOCKGAME_SESSION_TTL", &c.Session.TTL); err != nil {
		return err
	}
	return dur("STOCKGAME_LOCK_TIMEOUT", &c.Trading.LockTimeout)
}
