package auth

import (
	"net/http"
	"time"

	"github.com/sakif/tsubuyaki/internal/backend"
)

// CookieName is the HttpOnly cookie holding the provider's access token.
const CookieName = "token"

// AccessToken copies the token cookie into the request context. It never
// rejects a request: whether the token is still good is for the provider to
// decide when the session loads, and an anonymous page is a valid page.
func AccessToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
			r = r.WithContext(backend.WithAccessToken(r.Context(), cookie.Value))
		}
		next.ServeHTTP(w, r)
	})
}

// SetTokenCookie stores token until expiresAt. A zero expiresAt makes it a
// browser-session cookie.
//
// HttpOnly keeps the token away from page scripts. SameSite=Lax keeps the
// cookie off cross-site POSTs.
func SetTokenCookie(w http.ResponseWriter, token string, expiresAt time.Time, secure bool) {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !expiresAt.IsZero() {
		c.Expires = expiresAt
		c.MaxAge = int(time.Until(expiresAt).Seconds())
		if c.MaxAge <= 0 {
			c.MaxAge = -1
		}
	}
	http.SetCookie(w, c)
}

// ClearTokenCookie tells the browser to delete the token cookie.
func ClearTokenCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
