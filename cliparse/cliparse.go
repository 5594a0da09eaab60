// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// BackendConfig configures the reference REST backend.
type BackendConfig struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	JWTSecret    string
	UploadDir    string
	TokenTTL     time.Duration
}

// ConsoleConfig configures the administrative console.
type ConsoleConfig struct {
	Port          int
	BackendURL    string
	SessionFile   string
	QueryRetries  int
	StaleTime     time.Duration
	CacheTime     time.Duration
	LiveDashboard bool
}

// LoadDotEnv loads a .env file from the working directory if one exists.
// Variables already present in the environment are left untouched.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}
}

// ParseBackendFlags validates backend flags, falling back to the environment.
func ParseBackendFlags(args []string) (BackendConfig, error) {
	var cfg BackendConfig

	fs := flag.NewFlagSet("rollcall backend", flag.ContinueOnError)

	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.UploadDir, "uploads", "", "Directory for voter photos")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", 0, "Access token lifetime")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "JWT signing secret (prefer env)")

	if err := fs.Parse(args); err != nil {
		return BackendConfig{}, err
	}

	port, err := portOrEnv(cfg.Port, "PORT", 3001)
	if err != nil {
		return BackendConfig{}, err
	}
	cfg.Port = port

	cfg.DatabaseURL = stringOrEnv(cfg.DatabaseURL, "DATABASE_URL", "file:rollcall.db")

	cfg.DatabaseType = stringOrEnv(cfg.DatabaseType, "DATABASE_TYPE", "sqlite")
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return BackendConfig{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	cfg.UploadDir = stringOrEnv(cfg.UploadDir, "UPLOAD_DIR", "uploads")

	if cfg.TokenTTL == 0 {
		ttl, err := durationOrEnv("TOKEN_TTL", 24*time.Hour)
		if err != nil {
			return BackendConfig{}, err
		}
		cfg.TokenTTL = ttl
	}

	// Secrets - MUST be provided
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if cfg.JWTSecret == "" {
		return BackendConfig{}, errors.New("JWT_SECRET required")
	}

	return cfg, nil
}

// ParseConsoleFlags validates console flags, falling back to the environment.
func ParseConsoleFlags(args []string) (ConsoleConfig, error) {
	var cfg ConsoleConfig
	var live string

	fs := flag.NewFlagSet("rollcall console", flag.ContinueOnError)

	fs.IntVar(&cfg.Port, "p", 0, "Console port")
	fs.StringVar(&cfg.BackendURL, "backend", "", "Backend base URL")
	fs.StringVar(&cfg.SessionFile, "session", "", "Session file path")
	fs.IntVar(&cfg.QueryRetries, "retries", -1, "Retries for failed reads")
	fs.DurationVar(&cfg.StaleTime, "stale", 0, "How long fetched lists stay fresh")
	fs.DurationVar(&cfg.CacheTime, "cache", 0, "How long unused lists stay cached")
	fs.StringVar(&live, "live-dashboard", "", "Compute dashboard figures from the backend (true/false)")

	if err := fs.Parse(args); err != nil {
		return ConsoleConfig{}, err
	}

	port, err := portOrEnv(cfg.Port, "CONSOLE_PORT", 5173)
	if err != nil {
		return ConsoleConfig{}, err
	}
	cfg.Port = port

	cfg.BackendURL = stringOrEnv(cfg.BackendURL, "BACKEND_URL", "")
	if cfg.BackendURL == "" {
		return ConsoleConfig{}, errors.New("backend URL required (use -backend or BACKEND_URL env)")
	}

	if cfg.SessionFile == "" {
		cfg.SessionFile = os.Getenv("SESSION_FILE")
	}
	if cfg.SessionFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return ConsoleConfig{}, fmt.Errorf("locate config dir: %w", err)
		}
		cfg.SessionFile = filepath.Join(dir, "rollcall", "session.json")
	}

	if cfg.QueryRetries < 0 {
		cfg.QueryRetries = 2
		if v := os.Getenv("QUERY_RETRIES"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return ConsoleConfig{}, errors.New("invalid QUERY_RETRIES env variable")
			}
			cfg.QueryRetries = n
		}
	}

	if cfg.StaleTime == 0 {
		d, err := durationOrEnv("QUERY_STALE_TIME", 5*time.Minute)
		if err != nil {
			return ConsoleConfig{}, err
		}
		cfg.StaleTime = d
	}
	if cfg.CacheTime == 0 {
		d, err := durationOrEnv("QUERY_CACHE_TIME", 10*time.Minute)
		if err != nil {
			return ConsoleConfig{}, err
		}
		cfg.CacheTime = d
	}

	if live == "" {
		live = os.Getenv("LIVE_DASHBOARD")
	}
	if live != "" {
		b, err := strconv.ParseBool(live)
		if err != nil {
			return ConsoleConfig{}, errors.New("invalid live-dashboard value")
		}
		cfg.LiveDashboard = b
	}

	return cfg, nil
}

func portOrEnv(flagValue int, env string, def int) (int, error) {
	if flagValue != 0 {
		return flagValue, nil
	}
	if portStr := os.Getenv(env); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return 0, fmt.Errorf("invalid %s env variable", env)
		}
		return port, nil
	}
	return def, nil
}

func stringOrEnv(flagValue, env, def string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

func durationOrEnv(env string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(env)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", env)
	}
	return d, nil
}
