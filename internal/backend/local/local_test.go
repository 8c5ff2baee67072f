package local

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/tsubuyaki/internal/auth"
	"github.com/sakif/tsubuyaki/internal/backend"
	"github.com/sakif/tsubuyaki/internal/model"
	"github.com/sakif/tsubuyaki/internal/repository/sqlite"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(db, auth.NewPasswordServiceWithCost(bcrypt.MinCost), tokens, logger)
}

func signUp(t *testing.T, p *Provider, email, password string) *model.Identity {
	t.Helper()
	res, err := p.SignUp(context.Background(), backend.SignUpRequest{
		Email:    email,
		Password: password,
		Metadata: model.IdentityMetadata{Name: "Hana", Handle: "hana", Avatar: "🌸"},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Identity)
	return res.Identity
}

func TestSignUpThenSignIn(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	id := signUp(t, p, "Hana@Example.com ", "secret1")
	assert.Equal(t, "hana@example.com", id.Email)
	assert.Equal(t, "hana", id.Metadata.Handle)

	sess, err := p.SignInWithPassword(ctx, "hana@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.AccessToken)
	assert.Equal(t, id.ID, sess.Identity.ID)
	assert.True(t, sess.ExpiresAt.After(time.Now()))

	// The token resolves back to the same identity.
	got, err := p.CurrentIdentity(backend.WithAccessToken(ctx, sess.AccessToken))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id.ID, got.ID)
	assert.Equal(t, "🌸", got.Metadata.Avatar)
}

func TestSignUp_Duplicate(t *testing.T) {
	p := newTestProvider(t)
	signUp(t, p, "a@example.com", "secret1")

	_, err := p.SignUp(context.Background(), backend.SignUpRequest{Email: "A@example.com", Password: "secret2"})
	require.Error(t, err)

	var authErr *backend.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "User already registered", authErr.Message)
	assert.ErrorIs(t, err, backend.ErrAlreadyRegistered)
}

func TestSignUp_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantMsg  string
	}{
		{name: "short password", email: "a@example.com", password: "12345", wantMsg: "Password should be at least 6 characters"},
		{name: "bad email", email: "not-an-email", password: "secret1", wantMsg: "Unable to validate email address: invalid format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t)
			_, err := p.SignUp(context.Background(), backend.SignUpRequest{Email: tt.email, Password: tt.password})

			var authErr *backend.AuthError
			require.True(t, errors.As(err, &authErr), "want *AuthError, got %v", err)
			assert.Equal(t, tt.wantMsg, authErr.Message)
		})
	}
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	p := newTestProvider(t)
	signUp(t, p, "a@example.com", "secret1")

	for _, tc := range []struct{ email, password string }{
		{"a@example.com", "wrong-password"},
		{"nobody@example.com", "secret1"},
	} {
		_, err := p.SignInWithPassword(context.Background(), tc.email, tc.password)
		var authErr *backend.AuthError
		require.True(t, errors.As(err, &authErr))
		assert.Equal(t, "Invalid login credentials", authErr.Message)
		assert.ErrorIs(t, err, backend.ErrInvalidCredentials)
	}
}

func TestCurrentIdentity_Anonymous(t *testing.T) {
	p := newTestProvider(t)

	id, err := p.CurrentIdentity(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, id)
}

func TestCurrentIdentity_BadToken(t *testing.T) {
	p := newTestProvider(t)

	id, err := p.CurrentIdentity(backend.WithAccessToken(context.Background(), "garbage"))
	assert.Error(t, err)
	assert.Nil(t, id)
}

func TestSignOut(t *testing.T) {
	p := newTestProvider(t)
	assert.NoError(t, p.SignOut(context.Background()))
	assert.NoError(t, p.SignOut(backend.WithAccessToken(context.Background(), "x")))
}
