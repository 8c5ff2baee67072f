package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sakif/tsubuyaki/internal/apperror"
	"github.com/sakif/tsubuyaki/internal/model"
	"github.com/sakif/tsubuyaki/internal/repository"
)

var _ repository.AccountRepository = (*DB)(nil)

// CreateAccount relies on the UNIQUE index on email; a 23505 becomes Conflict.
func (d *DB) CreateAccount(ctx context.Context, account *model.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.CreatedAt = time.Now().UTC()

	_, err := d.db.Exec(ctx,
		`INSERT INTO accounts (id, email, password_hash, name, handle, avatar, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.Metadata.Name,
		account.Metadata.Handle,
		account.Metadata.Avatar,
		account.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperror.Conflict("account", account.Email)
		}
		return fmt.Errorf("postgres: inserting account %s: %w", account.Email, err)
	}
	return nil
}

func (d *DB) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return d.getAccount(ctx,
		`SELECT id, email, password_hash, name, handle, avatar, created_at
		 FROM accounts WHERE email = $1`, email)
}

func (d *DB) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	return d.getAccount(ctx,
		`SELECT id, email, password_hash, name, handle, avatar, created_at
		 FROM accounts WHERE id = $1`, id)
}

func (d *DB) getAccount(ctx context.Context, query, key string) (*model.Account, error) {
	var a model.Account
	err := d.db.QueryRow(ctx, query, key).Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.Metadata.Name,
		&a.Metadata.Handle,
		&a.Metadata.Avatar,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("account", key)
		}
		return nil, fmt.Errorf("postgres: getting account %s: %w", key, err)
	}
	return &a, nil
}
