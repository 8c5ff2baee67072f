// Package local is a self-hosted auth provider: accounts live in the SQL row
// store, passwords are bcrypt hashes and access tokens are HS256 JWTs.
//
// Failure messages use the same wording as the hosted provider so the UI
// behaves identically whichever backend is configured.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/tsubuyaki/internal/apperror"
	"github.com/sakif/tsubuyaki/internal/auth"
	"github.com/sakif/tsubuyaki/internal/backend"
	"github.com/sakif/tsubuyaki/internal/model"
	"github.com/sakif/tsubuyaki/internal/repository"
)

const (
	msgInvalidCredentials = "Invalid login credentials"
	msgAlreadyRegistered  = "User already registered"
	msgPasswordTooShort   = "Password should be at least 6 characters"
	msgInvalidEmail       = "Unable to validate email address: invalid format"
)

var _ backend.AuthProvider = (*Provider)(nil)

type Provider struct {
	accounts  repository.AccountRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	validate  *validator.Validate
	logger    *slog.Logger
}

func New(
	accounts repository.AccountRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *Provider {
	return &Provider{
		accounts:  accounts,
		passwords: passwords,
		tokens:    tokens,
		validate:  validator.New(),
		logger:    logger.With("component", "local-auth"),
	}
}

// CurrentIdentity resolves the context token. No token is not an error; a
// bad or expired token is, and the caller treats it as anonymous.
func (p *Provider) CurrentIdentity(ctx context.Context) (*model.Identity, error) {
	token := backend.AccessTokenFromContext(ctx)
	if token == "" {
		return nil, nil
	}

	id, err := p.tokens.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("local: resolving identity: %w", err)
	}

	account, err := p.accounts.GetAccountByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("local: resolving identity %s: %w", id, err)
	}

	return account.Identity(), nil
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*model.AuthSession, error) {
	email = normalizeEmail(email)

	account, err := p.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Same answer as a wrong password: don't reveal which emails exist.
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("local: signing in: %w", err)
	}

	if err := p.passwords.Verify(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("local: signing in: %w", err)
	}

	token, expiresAt, err := p.tokens.Generate(account.ID)
	if err != nil {
		return nil, fmt.Errorf("local: signing in: %w", err)
	}

	p.logger.Info("signed in", "identity_id", account.ID)

	return &model.AuthSession{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Identity:    *account.Identity(),
	}, nil
}

// SignUp creates an account. The identity is available immediately: there
// is no email confirmation step.
func (p *Provider) SignUp(ctx context.Context, req backend.SignUpRequest) (*model.SignUpResult, error) {
	email := normalizeEmail(req.Email)

	if err := p.validate.Var(email, "required,email"); err != nil {
		return nil, &backend.AuthError{Message: msgInvalidEmail, Err: err}
	}
	if err := auth.CheckPolicy(req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, &backend.AuthError{Message: msgPasswordTooShort, Err: err}
		}
		return nil, &backend.AuthError{Message: err.Error(), Err: err}
	}

	hash, err := p.passwords.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("local: signing up: %w", err)
	}

	account := &model.Account{
		Email:        email,
		PasswordHash: hash,
		Metadata:     req.Metadata,
	}
	if err := p.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, &backend.AuthError{Message: msgAlreadyRegistered, Err: backend.ErrAlreadyRegistered}
		}
		return nil, fmt.Errorf("local: signing up: %w", err)
	}

	p.logger.Info("account created", "identity_id", account.ID)

	return &model.SignUpResult{Identity: account.Identity()}, nil
}

// SignOut has nothing to revoke: tokens are stateless and expire on their
// own. The caller drops the cookie.
func (p *Provider) SignOut(ctx context.Context) error {
	if backend.AccessTokenFromContext(ctx) == "" {
		return nil
	}
	p.logger.Debug("signed out")
	return nil
}

func invalidCredentials() error {
	return &backend.AuthError{Message: msgInvalidCredentials, Err: backend.ErrInvalidCredentials}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
