package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sakif/tsubuyaki/internal/backend"
	"github.com/sakif/tsubuyaki/internal/model"
)

var _ backend.ProfileStore = (*DB)(nil)

// GetProfile returns (nil, nil) when the identity has no profile row.
func (d *DB) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	err := d.db.QueryRow(ctx,
		`SELECT id, name, handle, avatar, bio, created_at, updated_at
		 FROM profiles WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Handle, &p.Avatar, &p.Bio, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: getting profile %s: %w", id, err)
	}
	return &p, nil
}

// UpsertProfile writes name, handle and avatar. Bio is not in the update set.
func (d *DB) UpsertProfile(ctx context.Context, profile *model.Profile) error {
	now := time.Now().UTC()
	_, err := d.db.Exec(ctx,
		`INSERT INTO profiles (id, name, handle, avatar, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			handle = EXCLUDED.handle,
			avatar = EXCLUDED.avatar,
			updated_at = EXCLUDED.updated_at`,
		profile.ID, profile.Name, profile.Handle, profile.Avatar, now,
	)
	if err != nil {
		return fmt.Errorf("postgres: upserting profile %s: %w", profile.ID, err)
	}
	profile.UpdatedAt = now
	return nil
}
