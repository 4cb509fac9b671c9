// Package config provides configuration utilities for the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/kharcha-app/kharcha/internal/common"
)

// Config holds the application's runtime settings, loaded from the config
// file, KHARCHA_ environment variables and command-line flags via viper.
type Config struct {
	DBPath         string
	ListenAddr     string
	JWTSecret      string
	UserID         string
	AllowedOrigins []string
}

// Load assembles the configuration from viper's current state.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:         ExpandPath(viper.GetString("database.path")),
		ListenAddr:     viper.GetString("server.listen_addr"),
		JWTSecret:      viper.GetString("server.jwt_secret"),
		UserID:         viper.GetString("user"),
		AllowedOrigins: viper.GetStringSlice("server.allowed_origins"),
	}

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DBPath = filepath.Join(home, ".local", "share", "kharcha", "kharcha.db")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	return cfg, nil
}

// RequireJWTSecret validates that a signing secret is configured. The
// server refuses to start without one: no identity means no engine
// operations.
func (c *Config) RequireJWTSecret() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("%w: server.jwt_secret (KHARCHA_SERVER_JWT_SECRET)", common.ErrMissingConfig)
	}
	return nil
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}
