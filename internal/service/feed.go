package service

import (
	"context"
	"html/template"
	"log/slog"
	"strings"

	"github.com/sakif/tsubuyaki/internal/backend"
	"github.com/sakif/tsubuyaki/internal/format"
	"github.com/sakif/tsubuyaki/internal/model"
)

// FeedLimit is how many of the newest posts the feed shows.
const FeedLimit = 50

// PostNode is one rendered feed entry. Every string field is already
// escaped; HTML is the complete markup built from them.
type PostNode struct {
	ID      string        `json:"id"`
	Avatar  string        `json:"avatar"`
	Name    string        `json:"name"`
	Handle  string        `json:"handle"`
	Time    string        `json:"time"`
	Content string        `json:"content"`
	HTML    template.HTML `json:"-"`
}

// RenderPost escapes each display field once and assembles the entry markup.
func RenderPost(post model.Post, author model.DisplayAttributes) PostNode {
	n := PostNode{
		ID:      format.EscapeHTML(post.ID),
		Avatar:  format.EscapeHTML(author.Avatar),
		Name:    format.EscapeHTML(author.Name),
		Handle:  format.EscapeHTML(author.Handle),
		Time:    format.EscapeHTML(format.Time(post.CreatedAt)),
		Content: format.EscapeHTML(post.Content),
	}

	var b strings.Builder
	b.WriteString(`<article class="post" data-id="` + n.ID + `">`)
	b.WriteString(`<div class="post-avatar">` + n.Avatar + `</div>`)
	b.WriteString(`<div class="post-body"><div class="post-header">`)
	b.WriteString(`<span class="post-name">` + n.Name + `</span>`)
	b.WriteString(`<span class="post-handle">@` + n.Handle + `</span>`)
	b.WriteString(`<span class="post-time">` + n.Time + `</span>`)
	b.WriteString(`</div><div class="post-text">` + n.Content + `</div></div></article>`)

	// Every interpolated value above went through EscapeHTML.
	n.HTML = template.HTML(b.String())
	return n
}

// FeedLoader reads the newest posts and renders them.
type FeedLoader struct {
	posts  backend.PostStore
	logger *slog.Logger
}

func NewFeedLoader(posts backend.PostStore, logger *slog.Logger) *FeedLoader {
	return &FeedLoader{
		posts:  posts,
		logger: logger.With("component", "feed"),
	}
}

// Load returns up to FeedLimit nodes, newest first. A store failure is
// logged and yields an empty feed.
//
// Posts are not joined with profiles, so every entry shows the placeholder
// author.
func (f *FeedLoader) Load(ctx context.Context) []PostNode {
	posts, err := f.posts.ListPosts(ctx, FeedLimit)
	if err != nil {
		f.logger.Error("loading feed failed", "error", err)
		return []PostNode{}
	}

	// The store already orders and limits; the cap guards a store that
	// ignores the limit.
	if len(posts) > FeedLimit {
		posts = posts[:FeedLimit]
	}

	author := model.PlaceholderAuthor()
	nodes := make([]PostNode, 0, len(posts))
	for _, p := range posts {
		nodes = append(nodes, RenderPost(p, author))
	}
	return nodes
}
