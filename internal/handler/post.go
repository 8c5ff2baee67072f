package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/tsubuyaki/internal/apperror"
	"github.com/sakif/tsubuyaki/internal/service"
)

// PostHandler accepts the composer form.
type PostHandler struct {
	page     *PageHandler
	sessions *service.SessionManager
	composer *service.Composer
	logger   *slog.Logger
}

func NewPostHandler(page *PageHandler, sessions *service.SessionManager, composer *service.Composer, logger *slog.Logger) *PostHandler {
	return &PostHandler{
		page:     page,
		sessions: sessions,
		composer: composer,
		logger:   logger,
	}
}

// HandleCreate posts the composer text.
//
// HTTP: POST /posts   form: content=...
//
// RESPONSES:
//   - empty text           → 303 to "/" (nothing happens)
//   - too long             → 400 page, draft kept, 140文字までだよ🥺
//   - not logged in        → 401 page with the auth modal open
//   - backend write failed → 503 page, draft kept
//   - posted               → 303 to "/", composer empty
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	draft := r.FormValue("content")
	sess := h.sessions.Load(r.Context())

	text, err := h.composer.ValidatePostText(draft)
	if err != nil {
		if apperror.Message(err) == "" {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		h.renderFailure(w, r, sess, draft, err)
		return
	}

	if _, err := h.composer.CreatePost(r.Context(), sess, text); err != nil {
		h.renderFailure(w, r, sess, draft, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PostHandler) renderFailure(w http.ResponseWriter, r *http.Request, sess *service.Session, draft string, err error) {
	status, _ := statusOf(err)
	data := PageData{
		Composer: ComposerView{Draft: draft},
		Notice:   apperror.Message(err),
	}
	if errors.Is(err, apperror.ErrUnauthenticated) {
		data.AuthOpen = true
		data.Auth.Tab = service.TabLogin
	}
	h.page.render(w, r, status, sess, data)
}
