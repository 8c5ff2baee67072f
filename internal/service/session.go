// Package service holds the application's core flows: resolving the current
// session, loading and rendering the feed, composing posts and the
// login/register forms.
//
// THE LAYERS:
//
//	Handler (HTTP layer)     → parses requests, renders pages
//	Service (this package)   → orchestrates backend calls, decides notices
//	Backend (auth + rows)    → backend.AuthProvider, backend.Store
//
// Services depend on the backend interfaces only. main.go decides whether
// they talk to SQLite, Postgres, Supabase or Kratos.
//
// SESSION LIFETIME:
// A Session is built from scratch on every request by SessionManager.Load
// and thrown away afterwards. Login and logout never patch a session in
// place: they redirect, and the next request loads a fresh one.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/tsubuyaki/internal/backend"
	"github.com/sakif/tsubuyaki/internal/model"
)

// Session is the per-request view of who is logged in. Profile is only
// meaningful when Identity is non-nil.
type Session struct {
	Identity *model.Identity
	Profile  *model.Profile
}

// LoggedIn reports whether the session has an identity.
func (s *Session) LoggedIn() bool {
	return s != nil && s.Identity != nil
}

// Display resolves name, handle and avatar field by field:
// profile value, then identity metadata, then the generic fallback.
func (s *Session) Display() model.DisplayAttributes {
	var prof model.Profile
	var meta model.IdentityMetadata
	if s != nil && s.Profile != nil {
		prof = *s.Profile
	}
	if s != nil && s.Identity != nil {
		meta = s.Identity.Metadata
	}

	return model.DisplayAttributes{
		Name:   firstNonEmpty(prof.Name, meta.Name, model.DefaultName),
		Handle: firstNonEmpty(prof.Handle, meta.Handle, model.DefaultHandle),
		Avatar: firstNonEmpty(prof.Avatar, meta.Avatar, model.DefaultAvatar),
	}
}

// SessionView is what the header and composer show for the session.
// HandleLabel is "@handle", or empty when logged out.
type SessionView struct {
	LoggedIn      bool   `json:"loggedIn"`
	Avatar        string `json:"avatar"`
	Name          string `json:"name"`
	HandleLabel   string `json:"handle"`
	LogoutEnabled bool   `json:"logoutEnabled"`
}

func (s *Session) View() SessionView {
	if !s.LoggedIn() {
		return SessionView{
			Avatar: model.DefaultAvatar,
			Name:   MsgNotLoggedIn,
		}
	}
	d := s.Display()
	return SessionView{
		LoggedIn:      true,
		Avatar:        d.Avatar,
		Name:          d.Name,
		HandleLabel:   "@" + d.Handle,
		LogoutEnabled: true,
	}
}

// SessionManager resolves the current identity and its profile.
type SessionManager struct {
	auth     backend.AuthProvider
	profiles backend.ProfileStore
	logger   *slog.Logger
}

func NewSessionManager(auth backend.AuthProvider, profiles backend.ProfileStore, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		auth:     auth,
		profiles: profiles,
		logger:   logger.With("component", "session"),
	}
}

// Load builds the session for the access token carried by ctx.
//
// It never fails. A provider error means anonymous; a profile error means
// no profile. Both are logged and the page renders in the degraded state.
func (m *SessionManager) Load(ctx context.Context) *Session {
	identity, err := m.auth.CurrentIdentity(ctx)
	if err != nil {
		m.logger.Warn("resolving identity failed", "error", err)
		return &Session{}
	}
	if identity == nil {
		return &Session{}
	}

	sess := &Session{Identity: identity}

	profile, err := m.profiles.GetProfile(ctx, identity.ID)
	if err != nil {
		m.logger.Warn("loading profile failed",
			"identity_id", identity.ID,
			"error", err,
		)
		return sess
	}
	sess.Profile = profile
	return sess
}

// Logout signs out at the provider. The caller drops the cookie and
// reloads whatever the result; the error is returned only for logging.
func (m *SessionManager) Logout(ctx context.Context) error {
	if err := m.auth.SignOut(ctx); err != nil {
		m.logger.Warn("sign-out failed", "error", err)
		return fmt.Errorf("service: signing out: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
