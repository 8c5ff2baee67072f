package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/sakif/tsubuyaki/internal/apperror"
)

func TestPostValidate(t *testing.T) {
	tests := []struct {
		name    string
		post    Post
		wantErr bool
	}{
		{name: "ok", post: Post{UserID: "u1", Content: "hi"}},
		{name: "exactly 140 emoji", post: Post{UserID: "u1", Content: strings.Repeat("🍣", 140)}},
		{name: "141 chars", post: Post{UserID: "u1", Content: strings.Repeat("a", 141)}, wantErr: true},
		{name: "empty content", post: Post{UserID: "u1"}, wantErr: true},
		{name: "no author", post: Post{Content: "hi"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.post.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Validate() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestPlaceholderAuthor(t *testing.T) {
	got := PlaceholderAuthor()
	want := DisplayAttributes{Name: "ユーザー", Handle: "user", Avatar: "🧑‍💻"}
	if got != want {
		t.Errorf("PlaceholderAuthor() = %+v, want %+v", got, want)
	}
}

func TestAccountIdentity(t *testing.T) {
	a := &Account{ID: "id", Email: "a@example.com", PasswordHash: "secret", Metadata: IdentityMetadata{Handle: "a"}}
	id := a.Identity()
	if id.ID != "id" || id.Email != "a@example.com" || id.Metadata.Handle != "a" {
		t.Errorf("Identity() = %+v", id)
	}
}
