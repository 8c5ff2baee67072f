package model

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/sakif/tsubuyaki/internal/apperror"
)

// MaxPostLength is the maximum post length in characters (Unicode code points).
const MaxPostLength = 140

// Post is a single short text entry. Posts are immutable once created.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks the storage invariants: an author and 1-140 characters.
func (p *Post) Validate() error {
	if p.UserID == "" {
		return apperror.ValidationFailed("user_id", "user_id is required")
	}
	n := utf8.RuneCountInString(p.Content)
	if n == 0 || n > MaxPostLength {
		return apperror.ValidationFailed("content",
			fmt.Sprintf("content must be 1-%d characters", MaxPostLength))
	}
	return nil
}
