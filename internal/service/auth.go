package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/tsubuyaki/internal/apperror"
	"github.com/sakif/tsubuyaki/internal/backend"
	"github.com/sakif/tsubuyaki/internal/model"
)

// Tab is the visible half of the account modal.
type Tab string

const (
	TabLogin    Tab = "login"
	TabRegister Tab = "register"
)

// ParseTab maps a query value to a Tab. Anything unknown is the login tab.
func ParseTab(s string) Tab {
	if Tab(s) == TabRegister {
		return TabRegister
	}
	return TabLogin
}

type LoginForm struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// RegisterForm holds the register inputs. Avatar is optional.
type RegisterForm struct {
	Name     string `validate:"required"`
	Handle   string `validate:"required"`
	Email    string `validate:"required"`
	Avatar   string
	Password string `validate:"required"`
}

// AuthView is the state of the account modal for one render: which tab is
// showing, what the inputs hold, and the messages in each slot.
type AuthView struct {
	Tab           Tab
	Login         LoginForm
	Register      RegisterForm
	LoginError    string
	RegisterError string
	Notice        string
}

// Switch shows the given tab. Inputs and messages are left as they are.
func (v *AuthView) Switch(tab Tab) {
	v.Tab = tab
}

// AuthFlow runs the login and register forms against the auth provider.
type AuthFlow struct {
	auth     backend.AuthProvider
	profiles backend.ProfileStore
	validate *validator.Validate
	inflight flightGroup
	logger   *slog.Logger
}

func NewAuthFlow(auth backend.AuthProvider, profiles backend.ProfileStore, logger *slog.Logger) *AuthFlow {
	return &AuthFlow{
		auth:     auth,
		profiles: profiles,
		validate: validator.New(),
		logger:   logger.With("component", "auth-flow"),
	}
}

// Login signs in with the view's login inputs. Email is trimmed; its format
// is the provider's business.
//
// On failure the message lands in view.LoginError and the error is
// returned. On success the caller stores the session token and reloads.
func (a *AuthFlow) Login(ctx context.Context, view *AuthView) (*model.AuthSession, error) {
	view.LoginError = ""
	view.Login.Email = strings.TrimSpace(view.Login.Email)

	if err := a.validate.Struct(view.Login); err != nil {
		view.LoginError = MsgLoginFieldsMissing
		return nil, apperror.ValidationFailed("login", MsgLoginFieldsMissing)
	}

	email, password := view.Login.Email, view.Login.Password
	key := "login\x00" + email + "\x00" + password
	v, _, err := a.inflight.do(ctx, key, func(ctx context.Context) (any, error) {
		return a.auth.SignInWithPassword(ctx, email, password)
	})
	if err != nil {
		view.LoginError = a.failureMessage(err, "sign-in")
		return nil, fmt.Errorf("service: signing in: %w", err)
	}

	sess := v.(*model.AuthSession)
	a.logger.Info("signed in", slog.String("identity_id", sess.Identity.ID))
	return sess, nil
}

// Register creates an account from the view's register inputs.
//
// Whatever the provider says, a successful sign-up ends on the login tab
// with MsgRegistered. An "already registered" failure also moves to the
// login tab, with MsgAlreadyRegistered in the register slot.
func (a *AuthFlow) Register(ctx context.Context, view *AuthView) error {
	view.RegisterError = ""
	f := &view.Register
	f.Name = strings.TrimSpace(f.Name)
	f.Handle = strings.TrimSpace(f.Handle)
	f.Email = strings.TrimSpace(f.Email)
	f.Avatar = strings.TrimSpace(f.Avatar)

	if err := a.validate.Struct(*f); err != nil {
		view.RegisterError = MsgRegisterMissing
		return apperror.ValidationFailed("register", MsgRegisterMissing)
	}

	req := backend.SignUpRequest{
		Email:    f.Email,
		Password: f.Password,
		Metadata: model.IdentityMetadata{
			Name:   f.Name,
			Handle: f.Handle,
			Avatar: firstNonEmpty(f.Avatar, model.DefaultAvatar),
		},
	}

	key := fmt.Sprintf("register\x00%s\x00%s\x00%+v", req.Email, req.Password, req.Metadata)
	v, _, err := a.inflight.do(ctx, key, func(ctx context.Context) (any, error) {
		return a.auth.SignUp(ctx, req)
	})
	if err != nil {
		if IsAlreadyRegistered(err) {
			view.RegisterError = MsgAlreadyRegistered
			view.Switch(TabLogin)
		} else {
			view.RegisterError = a.failureMessage(err, "sign-up")
		}
		return fmt.Errorf("service: signing up: %w", err)
	}

	res := v.(*model.SignUpResult)
	if res.Identity != nil {
		a.provisionProfile(ctx, res, req.Metadata)
	} else {
		a.logger.Info("sign-up pending confirmation")
	}

	view.Notice = MsgRegistered
	view.Switch(TabLogin)
	return nil
}

// provisionProfile upserts the new identity's profile. Failures are logged
// only: the account exists either way.
func (a *AuthFlow) provisionProfile(ctx context.Context, res *model.SignUpResult, meta model.IdentityMetadata) {
	if res.AccessToken != "" {
		ctx = backend.WithAccessToken(ctx, res.AccessToken)
	}

	profile := &model.Profile{
		ID:     res.Identity.ID,
		Name:   meta.Name,
		Handle: meta.Handle,
		Avatar: meta.Avatar,
	}
	if err := a.profiles.UpsertProfile(ctx, profile); err != nil {
		a.logger.Warn("profile upsert after sign-up failed",
			slog.String("identity_id", profile.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	a.logger.Info("account registered", slog.String("identity_id", profile.ID))
}

// failureMessage is the provider's own wording for auth errors. Anything
// else (transport, decoding) is logged and replaced by a generic notice.
func (a *AuthFlow) failureMessage(err error, op string) string {
	var authErr *backend.AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	a.logger.Error(op+" failed", slog.String("error", err.Error()))
	return MsgBackendUnavailable
}

// IsAlreadyRegistered reports whether a sign-up error means the email is
// taken, by sentinel or by the provider's message.
func IsAlreadyRegistered(err error) bool {
	if errors.Is(err, backend.ErrAlreadyRegistered) {
		return true
	}
	var authErr *backend.AuthError
	return errors.As(err, &authErr) && strings.Contains(authErr.Message, "User already registered")
}
