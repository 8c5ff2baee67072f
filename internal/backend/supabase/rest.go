package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sakif/tsubuyaki/internal/backend"
	"github.com/sakif/tsubuyaki/internal/format"
	"github.com/sakif/tsubuyaki/internal/model"
)

const (
	profilesTable = "profiles"
	postsTable    = "tweets"
)

var _ backend.Store = (*Store)(nil)

// Store implements backend.ProfileStore and backend.PostStore on PostgREST.
// Row-level security decides what the caller may read and write; the
// caller's token comes from the context.
type Store struct {
	client *Client
}

func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// rowID accepts both text (uuid) and numeric (bigserial) primary keys.
type rowID string

func (id *rowID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = rowID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("supabase: id is neither string nor number: %s", b)
	}
	*id = rowID(n.String())
	return nil
}

type profileRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Handle    string `json:"handle"`
	Avatar    string `json:"avatar"`
	Bio       string `json:"bio"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type postRow struct {
	ID        rowID  `json:"id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

func (r postRow) post() model.Post {
	p := model.Post{ID: string(r.ID), UserID: r.UserID, Content: r.Content}
	// An unparseable timestamp leaves CreatedAt zero, which renders as an
	// empty time label.
	if t, err := format.ParseTimestamp(r.CreatedAt); err == nil {
		p.CreatedAt = t
	}
	return p
}

// GetProfile fetches the profile row with "maybe single" semantics: zero
// rows is (nil, nil).
func (s *Store) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var rows []profileRow
	err := s.client.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/" + profilesTable,
		query: url.Values{
			"select": {"id,name,handle,avatar,bio"},
			"id":     {"eq." + id},
			"limit":  {"1"},
		},
		token: userToken(ctx),
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("supabase: getting profile %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	r := rows[0]
	return &model.Profile{
		ID:     r.ID,
		Name:   r.Name,
		Handle: r.Handle,
		Avatar: r.Avatar,
		Bio:    r.Bio,
	}, nil
}

// UpsertProfile sends only id, name, handle and avatar. With
// resolution=merge-duplicates PostgREST updates just those columns, so an
// existing bio survives.
func (s *Store) UpsertProfile(ctx context.Context, profile *model.Profile) error {
	body := map[string]string{
		"id":     profile.ID,
		"name":   profile.Name,
		"handle": profile.Handle,
		"avatar": profile.Avatar,
	}
	err := s.client.do(ctx, request{
		method:  http.MethodPost,
		path:    "/rest/v1/" + profilesTable,
		body:    body,
		token:   userToken(ctx),
		headers: map[string]string{"Prefer": "resolution=merge-duplicates,return=minimal"},
	}, nil)
	if err != nil {
		return fmt.Errorf("supabase: upserting profile %s: %w", profile.ID, err)
	}
	profile.UpdatedAt = time.Now()
	return nil
}

func (s *Store) ListPosts(ctx context.Context, limit int) ([]model.Post, error) {
	if limit <= 0 {
		return []model.Post{}, nil
	}

	var rows []postRow
	err := s.client.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/" + postsTable,
		query: url.Values{
			"select": {"id,user_id,content,created_at"},
			"order":  {"created_at.desc,id.desc"},
			"limit":  {strconv.Itoa(limit)},
		},
		token: userToken(ctx),
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("supabase: listing posts: %w", err)
	}

	posts := make([]model.Post, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, r.post())
	}
	return posts, nil
}

// InsertPost lets the table assign id and created_at and reads them back.
func (s *Store) InsertPost(ctx context.Context, post *model.Post) error {
	if err := post.Validate(); err != nil {
		return err
	}

	var rows []postRow
	err := s.client.do(ctx, request{
		method:  http.MethodPost,
		path:    "/rest/v1/" + postsTable,
		body:    map[string]string{"user_id": post.UserID, "content": post.Content},
		token:   userToken(ctx),
		headers: map[string]string{"Prefer": "return=representation"},
	}, &rows)
	if err != nil {
		return fmt.Errorf("supabase: inserting post: %w", err)
	}

	if len(rows) > 0 {
		created := rows[0].post()
		post.ID = created.ID
		post.CreatedAt = created.CreatedAt
	}
	return nil
}
