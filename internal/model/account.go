package model

import "time"

// Account is a credential record owned by the local auth provider. Hosted
// providers keep their own; this type never leaves the local backend.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Metadata     IdentityMetadata
	CreatedAt    time.Time
}

// Identity returns the public view of the account.
func (a *Account) Identity() *Identity {
	return &Identity{
		ID:       a.ID,
		Email:    a.Email,
		Metadata: a.Metadata,
	}
}
