// Package backend defines the collaborator surface the application consumes:
// an auth provider that issues and resolves identities, and a row store
// holding profiles and posts.
//
// Implementations live in subpackages (local, supabase, kratos) and in
// internal/repository (sqlite, postgres). The service layer only ever sees
// these interfaces.
package backend

import (
	"context"
	"errors"

	"github.com/sakif/tsubuyaki/internal/model"
)

// ErrAlreadyRegistered is wrapped by AuthError when a sign-up is rejected
// because the email already belongs to an account.
var ErrAlreadyRegistered = errors.New("backend: user already registered")

// ErrInvalidCredentials is wrapped by AuthError when a sign-in is rejected.
var ErrInvalidCredentials = errors.New("backend: invalid login credentials")

// AuthError is a provider-side authentication failure. Message is the
// provider's own wording and is shown to the user verbatim.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// SignUpRequest carries the credentials and the identity metadata attached
// at registration.
type SignUpRequest struct {
	Email    string
	Password string
	Metadata model.IdentityMetadata
}

// AuthProvider resolves and issues identities. Calls that act on the current
// user read the access token from the context (see WithAccessToken).
type AuthProvider interface {
	// CurrentIdentity returns (nil, nil) when the context carries no token.
	CurrentIdentity(ctx context.Context) (*model.Identity, error)
	SignInWithPassword(ctx context.Context, email, password string) (*model.AuthSession, error)
	SignUp(ctx context.Context, req SignUpRequest) (*model.SignUpResult, error)
	SignOut(ctx context.Context) error
}

// ProfileStore reads and upserts profile rows keyed by identity ID.
type ProfileStore interface {
	// GetProfile returns (nil, nil) when no profile exists for id.
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	// UpsertProfile inserts or overwrites name, handle and avatar for
	// profile.ID. Bio is left untouched on existing rows.
	UpsertProfile(ctx context.Context, profile *model.Profile) error
}

// PostStore reads and appends posts.
type PostStore interface {
	// ListPosts returns at most limit posts, newest first.
	ListPosts(ctx context.Context, limit int) ([]model.Post, error)
	// InsertPost stores a new post, filling ID and CreatedAt when empty.
	InsertPost(ctx context.Context, post *model.Post) error
}

// Store is a row store serving both tables.
type Store interface {
	ProfileStore
	PostStore
}
