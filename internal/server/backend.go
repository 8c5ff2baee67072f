package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/tsubuyaki/internal/auth"
	"github.com/sakif/tsubuyaki/internal/backend"
	"github.com/sakif/tsubuyaki/internal/backend/kratos"
	"github.com/sakif/tsubuyaki/internal/backend/local"
	"github.com/sakif/tsubuyaki/internal/backend/supabase"
	"github.com/sakif/tsubuyaki/internal/config"
	"github.com/sakif/tsubuyaki/internal/repository"
	"github.com/sakif/tsubuyaki/internal/repository/postgres"
	sqliteRepo "github.com/sakif/tsubuyaki/internal/repository/sqlite"
)

// Backend is the configured auth provider and row store, plus whatever
// they hold open.
type Backend struct {
	Auth  backend.AuthProvider
	Store backend.Store

	closers []func()
}

// Close releases connections in reverse order of opening.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// OpenBackend builds the provider and store named by cfg.
//
// COMBINATIONS:
//
//	AUTH_PROVIDER  STORE                       accounts live in
//	local          sqlite | postgres           the same SQL store
//	supabase       supabase | sqlite | postgres GoTrue
//	kratos         any                          Kratos
//
// config.Validate has already rejected the combinations that cannot work.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	b := &Backend{}
	httpClient := auth.NewHTTPClient(cfg.BackendTimeout)

	var sb *supabase.Client
	if cfg.UsesSupabase() {
		var err error
		sb, err = supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, httpClient, logger)
		if err != nil {
			return nil, err
		}
	}

	// === ROW STORE ===
	var accounts repository.AccountRepository
	switch cfg.Store {
	case config.StoreSQLite:
		if cfg.DBPath != ":memory:" {
			dir := filepath.Dir(cfg.DBPath)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { db.Close() })
		b.Store, accounts = db, db

	case config.StorePostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		db := postgres.New(pool, logger)
		b.closers = append(b.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			b.Close()
			return nil, err
		}
		b.Store, accounts = db, db

	case config.StoreSupabase:
		b.Store = supabase.NewStore(sb)

	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	// === AUTH PROVIDER ===
	switch cfg.AuthProvider {
	case config.AuthLocal:
		if accounts == nil {
			b.Close()
			return nil, fmt.Errorf("local auth needs a SQL store, got %q", cfg.Store)
		}
		tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Auth = local.New(accounts, auth.NewPasswordService(), tokens, logger)

	case config.AuthSupabase:
		b.Auth = supabase.NewAuthProvider(sb)

	case config.AuthKratos:
		b.Auth = kratos.New(cfg.KratosURL, httpClient, logger)

	default:
		b.Close()
		return nil, fmt.Errorf("unknown auth provider %q", cfg.AuthProvider)
	}

	logger.Info("backend ready",
		slog.String("auth", cfg.AuthProvider),
		slog.String("store", cfg.Store),
	)
	return b, nil
}
