package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/tsubuyaki/internal/backend"
	"github.com/sakif/tsubuyaki/internal/model"
)

var _ backend.AuthProvider = (*AuthProvider)(nil)

// AuthProvider implements backend.AuthProvider against GoTrue.
type AuthProvider struct {
	client *Client
}

func NewAuthProvider(client *Client) *AuthProvider {
	return &AuthProvider{client: client}
}

// user is GoTrue's user object, trimmed to what we read.
type user struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata model.IdentityMetadata `json:"user_metadata"`
}

func (u *user) identity() *model.Identity {
	return &model.Identity{ID: u.ID, Email: u.Email, Metadata: u.UserMetadata}
}

// session is the token grant response. On sign-up GoTrue returns either a
// session (auto-confirm) or a bare user (confirmation pending); both shapes
// decode into this struct.
type session struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	ExpiresAt   int64  `json:"expires_at"`
	User        *user  `json:"user"`

	// Bare-user shape.
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata model.IdentityMetadata `json:"user_metadata"`
}

func (s *session) expiry(now time.Time) time.Time {
	switch {
	case s.ExpiresAt > 0:
		return time.Unix(s.ExpiresAt, 0)
	case s.ExpiresIn > 0:
		return now.Add(time.Duration(s.ExpiresIn) * time.Second)
	default:
		return time.Time{}
	}
}

func (p *AuthProvider) CurrentIdentity(ctx context.Context) (*model.Identity, error) {
	token := userToken(ctx)
	if token == "" {
		return nil, nil
	}

	var u user
	err := p.client.do(ctx, request{
		method: http.MethodGet,
		path:   "/auth/v1/user",
		token:  token,
	}, &u)
	if err != nil {
		return nil, fmt.Errorf("supabase: getting user: %w", err)
	}
	if u.ID == "" {
		return nil, errors.New("supabase: user response has no id")
	}
	return u.identity(), nil
}

func (p *AuthProvider) SignInWithPassword(ctx context.Context, email, password string) (*model.AuthSession, error) {
	var s session
	err := p.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
	}, &s)
	if err != nil {
		return nil, authError(err)
	}
	if s.AccessToken == "" || s.User == nil {
		return nil, errors.New("supabase: token response has no session")
	}

	return &model.AuthSession{
		AccessToken: s.AccessToken,
		ExpiresAt:   s.expiry(time.Now()),
		Identity:    *s.User.identity(),
	}, nil
}

func (p *AuthProvider) SignUp(ctx context.Context, req backend.SignUpRequest) (*model.SignUpResult, error) {
	var s session
	err := p.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body: map[string]any{
			"email":    req.Email,
			"password": req.Password,
			"data":     req.Metadata,
		},
	}, &s)
	if err != nil {
		return nil, authError(err)
	}

	switch {
	case s.User != nil && s.User.ID != "":
		return &model.SignUpResult{Identity: s.User.identity(), AccessToken: s.AccessToken}, nil
	case s.ID != "":
		u := user{ID: s.ID, Email: s.Email, UserMetadata: s.UserMetadata}
		return &model.SignUpResult{Identity: u.identity()}, nil
	default:
		return &model.SignUpResult{}, nil
	}
}

func (p *AuthProvider) SignOut(ctx context.Context) error {
	token := userToken(ctx)
	if token == "" {
		return nil
	}
	err := p.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		token:  token,
	}, nil)
	if err != nil {
		return fmt.Errorf("supabase: signing out: %w", err)
	}
	return nil
}

// authError turns a GoTrue error response into a *backend.AuthError whose
// message is GoTrue's own. Transport failures pass through unchanged.
func authError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	msg := apiErr.Text()
	if msg == "" {
		msg = apiErr.Error()
	}

	var sentinel error = apiErr
	switch {
	case apiErr.ErrorCode == "user_already_exists" || strings.Contains(msg, "User already registered"):
		sentinel = backend.ErrAlreadyRegistered
	case apiErr.ErrorCode == "invalid_credentials" || apiErr.ErrorName == "invalid_grant":
		sentinel = backend.ErrInvalidCredentials
	}
	return &backend.AuthError{Message: msg, Err: sentinel}
}
