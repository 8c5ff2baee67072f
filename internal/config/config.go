// Package config loads the server configuration from the environment.
//
// A .env file in the working directory is read first when present. Values
// already set in the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Auth providers.
const (
	AuthLocal    = "local"
	AuthSupabase = "supabase"
	AuthKratos   = "kratos"
)

// Row stores.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreSupabase = "supabase"
)

type Config struct {
	Port     int
	LogLevel slog.Level

	AuthProvider string
	Store        string

	DBPath      string // sqlite
	DatabaseURL string // postgres

	SupabaseURL     string
	SupabaseAnonKey string
	KratosURL       string

	// JWTSecret signs access tokens issued by the local provider.
	JWTSecret  string
	SessionTTL time.Duration

	BackendTimeout time.Duration
	CookieSecure   bool

	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Only set it behind a proxy that overwrites those headers.
	TrustProxy bool

	// Per-IP limit on the /auth POSTs, in requests per second.
	AuthRateLimit float64
	AuthRateBurst int
}

// Load reads .env (if any) and the environment, then validates.
func Load() (*Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit env files. Missing files are skipped.
func LoadFiles(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: reading %s: %w", f, err)
		}
	}

	cfg := &Config{
		AuthProvider:    strings.ToLower(getEnv("AUTH_PROVIDER", AuthLocal)),
		Store:           strings.ToLower(getEnv("STORE", StoreSQLite)),
		DBPath:          getEnv("DB_PATH", "data/tsubuyaki.db"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SupabaseURL:     strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey: getEnv("SUPABASE_ANON_KEY", ""),
		KratosURL:       strings.TrimRight(getEnv("KRATOS_URL", ""), "/"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(getEnv("PORT", "8080")); err != nil {
		return nil, fmt.Errorf("config: invalid PORT: %w", err)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("config: invalid LOG_LEVEL: %w", err)
	}
	if cfg.SessionTTL, err = time.ParseDuration(getEnv("SESSION_TTL", "168h")); err != nil {
		return nil, fmt.Errorf("config: invalid SESSION_TTL: %w", err)
	}
	if cfg.BackendTimeout, err = time.ParseDuration(getEnv("BACKEND_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("config: invalid BACKEND_TIMEOUT: %w", err)
	}
	if cfg.CookieSecure, err = strconv.ParseBool(getEnv("COOKIE_SECURE", "false")); err != nil {
		return nil, fmt.Errorf("config: invalid COOKIE_SECURE: %w", err)
	}
	if cfg.TrustProxy, err = strconv.ParseBool(getEnv("TRUST_PROXY", "false")); err != nil {
		return nil, fmt.Errorf("config: invalid TRUST_PROXY: %w", err)
	}
	if cfg.AuthRateLimit, err = strconv.ParseFloat(getEnv("AUTH_RATE_LIMIT", "1"), 64); err != nil {
		return nil, fmt.Errorf("config: invalid AUTH_RATE_LIMIT: %w", err)
	}
	if cfg.AuthRateBurst, err = strconv.Atoi(getEnv("AUTH_RATE_BURST", "5")); err != nil {
		return nil, fmt.Errorf("config: invalid AUTH_RATE_BURST: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values that cannot work together.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}

	switch c.AuthProvider {
	case AuthLocal:
		// Accounts live in the SQL store next to the rows.
		if c.Store != StoreSQLite && c.Store != StorePostgres {
			return fmt.Errorf("config: AUTH_PROVIDER=local needs STORE=sqlite or postgres, got %q", c.Store)
		}
		if len(c.JWTSecret) < 16 {
			return errors.New("config: AUTH_PROVIDER=local needs JWT_SECRET of at least 16 characters")
		}
		if c.SessionTTL <= 0 {
			return errors.New("config: SESSION_TTL must be positive")
		}
	case AuthSupabase:
	case AuthKratos:
		if c.KratosURL == "" {
			return errors.New("config: AUTH_PROVIDER=kratos needs KRATOS_URL")
		}
	default:
		return fmt.Errorf("config: unknown AUTH_PROVIDER %q", c.AuthProvider)
	}

	switch c.Store {
	case StoreSQLite:
		if c.DBPath == "" {
			return errors.New("config: STORE=sqlite needs DB_PATH")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: STORE=postgres needs DATABASE_URL")
		}
	case StoreSupabase:
	default:
		return fmt.Errorf("config: unknown STORE %q", c.Store)
	}

	if c.UsesSupabase() && (c.SupabaseURL == "" || c.SupabaseAnonKey == "") {
		return errors.New("config: supabase needs SUPABASE_URL and SUPABASE_ANON_KEY")
	}

	if c.BackendTimeout <= 0 {
		return errors.New("config: BACKEND_TIMEOUT must be positive")
	}
	if c.AuthRateLimit <= 0 || c.AuthRateBurst < 1 {
		return errors.New("config: AUTH_RATE_LIMIT and AUTH_RATE_BURST must be positive")
	}
	return nil
}

// UsesSupabase reports whether either half of the backend is Supabase.
func (c *Config) UsesSupabase() bool {
	return c.AuthProvider == AuthSupabase || c.Store == StoreSupabase
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
