// Package model defines the data structures shared by the service layer and
// the backend adapters.
//
// None of these types know where they came from: an Identity may have been
// issued by the local provider, Supabase or Kratos, and a Post may live in
// SQLite, Postgres or a PostgREST table.
package model

import "time"

// Identity is the externally authenticated principal, as reported by the
// auth provider. It is read-only to this application.
type Identity struct {
	ID       string           `json:"id"`
	Email    string           `json:"email"`
	Metadata IdentityMetadata `json:"metadata"`
}

// IdentityMetadata is the optional bag of display fields attached to an
// identity at sign-up. Any field may be empty.
type IdentityMetadata struct {
	Name   string `json:"name,omitempty"`
	Handle string `json:"handle,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// AuthSession is what a successful password sign-in returns. AccessToken is
// opaque to everything except the provider that issued it.
type AuthSession struct {
	AccessToken string    `json:"-"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Identity    Identity  `json:"identity"`
}

// SignUpResult is what a sign-up returns. Identity is nil when the provider
// holds the account behind an email-confirmation gate. AccessToken is set
// only by providers that sign the new user in straight away.
type SignUpResult struct {
	Identity    *Identity
	AccessToken string
}
