package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/tsubuyaki/internal/apperror"
	"github.com/sakif/tsubuyaki/internal/model"
	"github.com/sakif/tsubuyaki/internal/service"
)

// maxPostBody bounds the JSON body of POST /api/posts. 140 characters of
// four-byte runes plus JSON escaping fits comfortably.
const maxPostBody = 4 << 10

// APIHandler exposes the session and the feed as JSON, plus a JSON way to
// post for scripts.
type APIHandler struct {
	sessions *service.SessionManager
	feed     *service.FeedLoader
	composer *service.Composer
	logger   *slog.Logger
}

func NewAPIHandler(sessions *service.SessionManager, feed *service.FeedLoader, composer *service.Composer, logger *slog.Logger) *APIHandler {
	return &APIHandler{sessions: sessions, feed: feed, composer: composer, logger: logger}
}

// CreatePostRequest is the body of POST /api/posts.
type CreatePostRequest struct {
	Content string `json:"content"`
}

// CreatePostResponse carries the stored post and the refreshed feed.
type CreatePostResponse struct {
	Post  *model.Post        `json:"post"`
	Posts []service.PostNode `json:"posts"`
}

// FeedResponse wraps the feed so the body is an object, not a bare array.
type FeedResponse struct {
	Posts []service.PostNode `json:"posts"`
}

// HandleMe returns what the header shows for the current request.
//
// HTTP: GET /api/me
//
// An anonymous caller gets 200 with loggedIn=false, not 401: being logged
// out is a normal state of the page.
func (h *APIHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Load(r.Context()).View())
}

// HandleFeed returns the newest posts with their fields already escaped.
//
// HTTP: GET /api/feed
func (h *APIHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FeedResponse{Posts: h.feed.Load(r.Context())})
}

// HandleCreatePost posts as the cookie's identity.
//
// HTTP: POST /api/posts   body: {"content": "..."}
//
// Unlike the form, empty content is a 400 here: a script has no reason to
// send it.
func (h *APIHandler) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPostBody)).Decode(&req); err != nil {
		h.logger.Warn("invalid post JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	text, err := h.composer.ValidatePostText(req.Content)
	if err != nil {
		if apperror.Message(err) == "" {
			err = apperror.ValidationFailed("content", "content is required")
		}
		writeError(w, err)
		return
	}

	res, err := h.composer.CreatePost(r.Context(), h.sessions.Load(r.Context()), text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatePostResponse{Post: res.Post, Posts: res.Feed})
}

// HandleHealth is the liveness probe.
//
// HTTP: GET /healthz
func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
