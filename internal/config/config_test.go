package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "LOG_LEVEL", "AUTH_PROVIDER", "STORE", "DB_PATH", "DATABASE_URL",
	"SUPABASE_URL", "SUPABASE_ANON_KEY", "KRATOS_URL", "JWT_SECRET",
	"SESSION_TTL", "BACKEND_TIMEOUT", "COOKIE_SECURE", "AUTH_RATE_LIMIT",
	"AUTH_RATE_BURST", "TRUST_PROXY",
}

// clearEnv blanks every variable Load reads. t.Setenv restores them after
// the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "0123456789abcdef")

	cfg, err := LoadFiles()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, AuthLocal, cfg.AuthProvider)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, "data/tsubuyaki.db", cfg.DBPath)
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10*time.Second, cfg.BackendTimeout)
	assert.False(t, cfg.CookieSecure)
	assert.False(t, cfg.TrustProxy)
	assert.Equal(t, 1.0, cfg.AuthRateLimit)
	assert.Equal(t, 5, cfg.AuthRateBurst)
}

func TestLoadSupabase(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_PROVIDER", "Supabase")
	t.Setenv("STORE", "supabase")
	t.Setenv("SUPABASE_URL", "https://abc.supabase.co/")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFiles()
	require.NoError(t, err)
	assert.Equal(t, AuthSupabase, cfg.AuthProvider)
	assert.Equal(t, "https://abc.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.UsesSupabase())
}

func TestLoadReadsEnvFile(t *testing.T) {
	clearEnv(t)
	for _, k := range envKeys {
		os.Unsetenv(k)
	}

	path := filepath.Join(t.TempDir(), ".env")
	content := "JWT_SECRET=from-the-env-file-123\nPORT=9090\nCOOKIE_SECURE=true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("PORT")
		os.Unsetenv("COOKIE_SECURE")
	})

	cfg, err := LoadFiles(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, "from-the-env-file-123", cfg.JWTSecret)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "port not a number", env: map[string]string{"PORT": "http"}},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "loud"}},
		{name: "bad ttl", env: map[string]string{"SESSION_TTL": "a week"}},
		{name: "bad timeout", env: map[string]string{"BACKEND_TIMEOUT": "soon"}},
		{name: "bad bool", env: map[string]string{"COOKIE_SECURE": "maybe"}},
		{name: "bad trust proxy", env: map[string]string{"TRUST_PROXY": "sometimes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("JWT_SECRET", "0123456789abcdef")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFiles()
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:           8080,
			AuthProvider:   AuthLocal,
			Store:          StoreSQLite,
			DBPath:         ":memory:",
			JWTSecret:      "0123456789abcdef",
			SessionTTL:     time.Hour,
			BackendTimeout: time.Second,
			AuthRateLimit:  1,
			AuthRateBurst:  1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid local", mutate: func(c *Config) {}},
		{name: "short secret", mutate: func(c *Config) { c.JWTSecret = "short" }, wantErr: true},
		{name: "local on supabase rows", mutate: func(c *Config) {
			c.Store = StoreSupabase
			c.SupabaseURL, c.SupabaseAnonKey = "https://x", "k"
		}, wantErr: true},
		{name: "kratos without url", mutate: func(c *Config) { c.AuthProvider = AuthKratos }, wantErr: true},
		{name: "kratos with sqlite", mutate: func(c *Config) {
			c.AuthProvider, c.KratosURL = AuthKratos, "http://kratos:4433"
		}},
		{name: "postgres without url", mutate: func(c *Config) { c.Store = StorePostgres }, wantErr: true},
		{name: "supabase without key", mutate: func(c *Config) {
			c.AuthProvider, c.SupabaseURL = AuthSupabase, "https://x"
		}, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.AuthProvider = "ldap" }, wantErr: true},
		{name: "unknown store", mutate: func(c *Config) { c.Store = "redis" }, wantErr: true},
		{name: "port out of range", mutate: func(c *Config) { c.Port = 70000 }, wantErr: true},
		{name: "zero burst", mutate: func(c *Config) { c.AuthRateBurst = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
