// Package repository declares storage interfaces that are private to this
// application. The profile and post tables are described by
// backend.ProfileStore and backend.PostStore; the account table only exists
// for the local auth provider.
package repository

import (
	"context"

	"github.com/sakif/tsubuyaki/internal/model"
)

// AccountRepository stores credentials for the local auth provider.
type AccountRepository interface {
	// CreateAccount returns an apperror.ErrConflict error when the email is taken.
	CreateAccount(ctx context.Context, account *model.Account) error
	// GetAccountByEmail returns an apperror.ErrNotFound error when absent.
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	// GetAccountByID returns an apperror.ErrNotFound error when absent.
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
}
