package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sakif/tsubuyaki/internal/apperror"
	"github.com/sakif/tsubuyaki/internal/backend"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantMsg    string
	}{
		{
			name:       "validation",
			err:        apperror.ValidationFailed("content", "140文字までだよ🥺"),
			wantStatus: http.StatusBadRequest,
			wantKind:   "validation_error",
			wantMsg:    "140文字までだよ🥺",
		},
		{
			name:       "unauthenticated",
			err:        apperror.Unauthenticated("please log in"),
			wantStatus: http.StatusUnauthorized,
			wantKind:   "unauthenticated",
			wantMsg:    "please log in",
		},
		{
			name:       "wrapped unavailable",
			err:        fmt.Errorf("service: creating post: %w", apperror.Unavailable("投稿に失敗しちゃった…😭")),
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   "unavailable",
			wantMsg:    "投稿に失敗しちゃった…😭",
		},
		{
			name:       "not found",
			err:        apperror.NotFound("profile", "p1"),
			wantStatus: http.StatusNotFound,
			wantKind:   "not_found",
			wantMsg:    "profile not found with id p1",
		},
		{
			name:       "provider duplicate",
			err:        &backend.AuthError{Message: "User already registered", Err: backend.ErrAlreadyRegistered},
			wantStatus: http.StatusConflict,
			wantKind:   "conflict",
			wantMsg:    "User already registered",
		},
		{
			name:       "raw error is hidden",
			err:        errors.New("dial tcp 10.0.0.5:5432: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantKind:   "internal_error",
			wantMsg:    "An internal error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if body.Error != tt.wantKind || body.Message != tt.wantMsg {
				t.Errorf("body = %+v, want {%s %s}", body, tt.wantKind, tt.wantMsg)
			}
		})
	}
}
