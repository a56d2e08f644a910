package postgres

import (
	"fmt"
	"net/url"
)

const (
	defaultHost    = "localhost"
	defaultPort    = 5432
	defaultSSLMode = "disable"
)

// Config holds PostgreSQL connection settings. ConnString wins over the
// individual fields when set.
type Config struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	Params     map[string]string
	ConnString string

	// Pool settings
	MaxOpenConns int
	MaxIdleConns int
}

// DefaultConfig returns settings for a local development database
func DefaultConfig() Config {
	return Config{
		Host:         defaultHost,
		Port:         defaultPort,
		Database:     "stockgame",
		SSLMode:      defaultSSLMode,
		MaxOpenConns: 10,
		MaxIdleConns: 2,
	}
}

// DSN builds a postgres:// connection URL from the config
func (c Config) DSN() string {
	if c.ConnString != "" {
		return c.ConnString
	}

	host := c.Host
	if host == "" {
		host = defaultHost
	}
	port := c.Port
	if port == 0 {
		port = defaultPort
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	if c.Database != "" {
		u.Path = "/" + c.Database
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	for key, value := range c.Params {
		if key == "" {
			continue
		}
		query.Set(key, value)
	}
	u.RawQuery = query.Encode()

	return u.String()
}
