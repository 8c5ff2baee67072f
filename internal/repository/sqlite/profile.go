package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/tsubuyaki/internal/backend"
	"github.com/sakif/tsubuyaki/internal/model"
)

// compile-time check that *DB implements backend.ProfileStore
var _ backend.ProfileStore = (*DB)(nil)

// GetProfile returns the profile for an identity ID, or (nil, nil) when the
// identity has no profile yet. Absence is normal: profiles are created lazily.
func (db *DB) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, handle, avatar, bio, created_at, updated_at
		 FROM profiles WHERE id = ?`,
		id,
	).Scan(
		&p.ID,
		&p.Name,
		&p.Handle,
		&p.Avatar,
		&p.Bio,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: getting profile %s: %w", id, err)
	}

	return &p, nil
}

// UpsertProfile inserts the profile or overwrites name, handle and avatar of
// the existing row with the same ID.
//
// INSERT ... ON CONFLICT DO UPDATE keeps the row (and its created_at and bio)
// in place, unlike INSERT OR REPLACE which deletes and re-inserts. Running it
// twice with the same ID leaves exactly one row holding the latest values.
func (db *DB) UpsertProfile(ctx context.Context, profile *model.Profile) error {
	now := time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO profiles (id, name, handle, avatar, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			handle = excluded.handle,
			avatar = excluded.avatar,
			updated_at = excluded.updated_at`,
		profile.ID,
		profile.Name,
		profile.Handle,
		profile.Avatar,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting profile %s: %w", profile.ID, err)
	}

	profile.UpdatedAt = now
	return nil
}
