package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sakif/tsubuyaki/internal/apperror"
	"github.com/sakif/tsubuyaki/internal/model"
	"github.com/sakif/tsubuyaki/internal/repository"
)

// compile-time check that *DB implements repository.AccountRepository
var _ repository.AccountRepository = (*DB)(nil)

// CreateAccount inserts a new account. The email must not be taken.
//
// We look the email up first, like the upsert path does, so the common
// duplicate case yields a clean Conflict. The UNIQUE constraint still
// catches the race where two sign-ups for one address interleave.
func (db *DB) CreateAccount(ctx context.Context, account *model.Account) error {
	var existing string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM accounts WHERE email = ?`, account.Email,
	).Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: looking up account %s: %w", account.Email, err)
	}
	if existing != "" {
		return apperror.Conflict("account", account.Email)
	}

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.CreatedAt = time.Now().UTC()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, name, handle, avatar, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.Metadata.Name,
		account.Metadata.Handle,
		account.Metadata.Avatar,
		account.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("account", account.Email)
		}
		return fmt.Errorf("sqlite: inserting account %s: %w", account.Email, err)
	}

	return nil
}

// GetAccountByEmail returns the account registered under email.
func (db *DB) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return db.getAccount(ctx, "email", email)
}

// GetAccountByID returns the account with the given identity ID.
func (db *DB) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	return db.getAccount(ctx, "id", id)
}

// getAccount is shared by the two lookups. column is never user input.
func (db *DB) getAccount(ctx context.Context, column, value string) (*model.Account, error) {
	var a model.Account

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, password_hash, name, handle, avatar, created_at
		 FROM accounts WHERE `+column+` = ?`,
		value,
	).Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.Metadata.Name,
		&a.Metadata.Handle,
		&a.Metadata.Avatar,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", value)
		}
		return nil, fmt.Errorf("sqlite: getting account by %s: %w", column, err)
	}

	return &a, nil
}
