// Package config loads process configuration for the stockgame server.
//
// Settings come from an optional YAML file named by STOCKGAME_CONFIG, which
// supports ${VAR} environment interpolation, and are then overridden by
// STOCKGAME_* environment variables. Configuration is read once at startup.
package config
