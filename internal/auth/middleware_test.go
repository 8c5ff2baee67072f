package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/tsubuyaki/internal/backend"
)

func TestAccessToken(t *testing.T) {
	tests := []struct {
		name      string
		cookie    *http.Cookie
		wantToken string
	}{
		{name: "no cookie", cookie: nil},
		{name: "empty cookie", cookie: &http.Cookie{Name: CookieName, Value: ""}},
		{name: "token cookie", cookie: &http.Cookie{Name: CookieName, Value: "abc"}, wantToken: "abc"},
		{name: "unrelated cookie", cookie: &http.Cookie{Name: "other", Value: "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotToken string
			h := AccessToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotToken = backend.AccessTokenFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.wantToken, gotToken)
		})
	}
}

func TestSetTokenCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetTokenCookie(rec, "abc", time.Now().Add(time.Hour), true)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "abc", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Greater(t, c.MaxAge, 3500)
}

func TestSetTokenCookie_SessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetTokenCookie(rec, "abc", time.Time{}, false)

	c := rec.Result().Cookies()[0]
	assert.Equal(t, 0, c.MaxAge)
	assert.True(t, c.Expires.IsZero())
}

func TestClearTokenCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearTokenCookie(rec, false)

	c := rec.Result().Cookies()[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Empty(t, c.Value)
	assert.Equal(t, -1, c.MaxAge)
}
