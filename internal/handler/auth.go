package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/tsubuyaki/internal/auth"
	"github.com/sakif/tsubuyaki/internal/service"
)

// AuthHandler serves the account modal's forms and logout.
//
// The access token returned by the provider lives in an HttpOnly cookie
// (see auth.SetTokenCookie); auth.AccessToken puts it back into the
// request context on every request.
type AuthHandler struct {
	page         *PageHandler
	sessions     *service.SessionManager
	flow         *service.AuthFlow
	cookieSecure bool
	logger       *slog.Logger
}

func NewAuthHandler(
	page *PageHandler,
	sessions *service.SessionManager,
	flow *service.AuthFlow,
	cookieSecure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		page:         page,
		sessions:     sessions,
		flow:         flow,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// HandleLogin signs in.
//
// HTTP: POST /auth/login   form: email, password
//
// Success sets the token cookie and redirects to "/". Failure re-renders
// the page with the modal open on the login tab and the message in its
// error slot. The password is never echoed back.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	view := service.AuthView{
		Tab: service.TabLogin,
		Login: service.LoginForm{
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
		},
	}

	authSess, err := h.flow.Login(r.Context(), &view)
	if err != nil {
		view.Login.Password = ""
		status, _ := statusOf(err)
		h.page.render(w, r, status, h.sessions.Load(r.Context()), PageData{Auth: view, AuthOpen: true})
		return
	}

	auth.SetTokenCookie(w, authSess.AccessToken, authSess.ExpiresAt, h.cookieSecure)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleRegister creates an account.
//
// HTTP: POST /auth/register   form: name, handle, email, avatar, password
//
// The user is not signed in afterwards: the page comes back with the
// modal on the login tab and a notice asking them to log in.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	view := service.AuthView{
		Tab: service.TabRegister,
		Register: service.RegisterForm{
			Name:     r.FormValue("name"),
			Handle:   r.FormValue("handle"),
			Email:    r.FormValue("email"),
			Avatar:   r.FormValue("avatar"),
			Password: r.FormValue("password"),
		},
	}

	status := http.StatusOK
	notice := ""
	if err := h.flow.Register(r.Context(), &view); err != nil {
		status, _ = statusOf(err)
		if view.Tab == service.TabLogin {
			// Moved to the login tab: the register slot is hidden, so the
			// message goes to the notice and the email to the login form.
			notice = view.RegisterError
			view.Login.Email = view.Register.Email
		}
	} else {
		notice = view.Notice
		view.Login.Email = view.Register.Email
	}
	view.Register.Password = ""

	h.page.render(w, r, status, h.sessions.Load(r.Context()), PageData{
		Auth:     view,
		AuthOpen: true,
		Notice:   notice,
	})
}

// HandleLogout signs out at the provider, drops the cookie and reloads.
//
// HTTP: POST /auth/logout
//
// POST keeps browsers and link prefetchers from logging people out. A
// provider failure is logged by the session manager; the cookie goes
// regardless.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	_ = h.sessions.Logout(r.Context())
	auth.ClearTokenCookie(w, h.cookieSecure)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
