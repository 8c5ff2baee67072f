package model

import "time"

// Fallbacks used whenever neither a profile nor identity metadata provides
// a display field.
const (
	DefaultName   = "ユーザー"
	DefaultHandle = "user"
	DefaultAvatar = "🧑‍💻"
)

// Profile is the application-level record of display attributes for an
// identity. There is at most one profile per identity ID; writes are upserts.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Handle    string    `json:"handle"`
	Avatar    string    `json:"avatar"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DisplayAttributes are the derived, never-persisted fields shown for a user.
type DisplayAttributes struct {
	Name   string `json:"name"`
	Handle string `json:"handle"`
	Avatar string `json:"avatar"`
}

// PlaceholderAuthor is the fixed author shown on every feed entry. Posts are
// not joined with profiles, so the feed cannot show real authorship.
func PlaceholderAuthor() DisplayAttributes {
	return DisplayAttributes{
		Name:   DefaultName,
		Handle: DefaultHandle,
		Avatar: DefaultAvatar,
	}
}
