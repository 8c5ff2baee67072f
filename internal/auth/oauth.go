package auth

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// BearerClient returns an HTTP client that sends "Authorization: Bearer
// <accessToken>" on every request.
//
// Hosted backends authorize row access by the user's own token, so each
// request that acts as the user gets a client built from the context token.
// With an empty accessToken the plain base client is returned.
func BearerClient(ctx context.Context, base *http.Client, accessToken string) *http.Client {
	if accessToken == "" {
		return base
	}

	// oauth2.NewClient picks the underlying transport up from the context.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	client.Timeout = base.Timeout
	return client
}

// NewHTTPClient is the base client every backend adapter shares.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
