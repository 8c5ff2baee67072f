package backend

import "context"

// contextKey is unexported so no other package can read or shadow the token.
type contextKey string

const accessTokenKey contextKey = "accessToken"

// WithAccessToken returns a context carrying the caller's access token.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

// AccessTokenFromContext returns the access token, or "" for anonymous calls.
func AccessTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey).(string)
	return token
}
