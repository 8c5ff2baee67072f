// Package handler contains the HTTP handlers: the server-rendered page, the
// form posts that drive it, and a small JSON API.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the request (form values, query, cookie via context)
//  2. Call the service layer
//  3. Write the response: a page, a redirect, or JSON
//
// Handlers hold no business rules. Every notice text they show comes from
// the service layer.
//
// FULL RELOADS:
// Successful state changes (post, login, logout) answer 303 See Other to
// "/". The browser then GETs a fresh page, which rebuilds the session from
// scratch. Failed submissions re-render the page in place so the typed
// input survives.
package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/sakif/tsubuyaki/internal/model"
	"github.com/sakif/tsubuyaki/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

const pageTitle = "つぶやき"

// ComposerView is the post form: the draft text, its counter, and the
// avatar shown next to it.
type ComposerView struct {
	Avatar  string
	Draft   string
	Counter string // "N / 140"
	Over    bool
}

func newComposerView(avatar, draft string) ComposerView {
	n := utf8.RuneCountInString(draft)
	return ComposerView{
		Avatar:  avatar,
		Draft:   draft,
		Counter: fmt.Sprintf("%d / %d", n, model.MaxPostLength),
		Over:    n > model.MaxPostLength,
	}
}

// PageData is everything the index template renders.
type PageData struct {
	Title    string
	Session  service.SessionView
	Feed     []service.PostNode
	Composer ComposerView
	Auth     service.AuthView
	AuthOpen bool
	Notice   string
}

// PageHandler renders the single page of the app. The other handlers call
// render to answer a failed submission with the page itself.
type PageHandler struct {
	sessions  *service.SessionManager
	feed      *service.FeedLoader
	templates *template.Template
	logger    *slog.Logger
}

// NewPageHandler parses the embedded templates once. base.html is the
// layout; index.html fills its "content" block.
func NewPageHandler(sessions *service.SessionManager, feed *service.FeedLoader, logger *slog.Logger) (*PageHandler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("handler: parsing templates: %w", err)
	}
	return &PageHandler{
		sessions:  sessions,
		feed:      feed,
		templates: tmpl,
		logger:    logger,
	}, nil
}

// HandleIndex serves the page.
//
// HTTP: GET /?auth=open&tab=register
//
// auth=open shows the account modal. Any tab parameter opens it too.
func (h *PageHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := PageData{
		Auth:     service.AuthView{Tab: service.ParseTab(q.Get("tab"))},
		AuthOpen: q.Get("auth") == "open" || q.Has("tab"),
	}
	h.render(w, r, http.StatusOK, h.sessions.Load(r.Context()), data)
}

// render fills in the session, the feed and the composer defaults, then
// executes the layout.
func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, sess *service.Session, data PageData) {
	data.Title = pageTitle
	data.Session = sess.View()
	if data.Feed == nil {
		data.Feed = h.feed.Load(r.Context())
	}
	data.Composer = newComposerView(data.Session.Avatar, data.Composer.Draft)
	if data.Auth.Tab == "" {
		data.Auth.Tab = service.TabLogin
	}

	// Render into a buffer so a template error can still become a 500.
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, "base", data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
