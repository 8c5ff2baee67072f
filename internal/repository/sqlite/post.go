package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/tsubuyaki/internal/backend"
	"github.com/sakif/tsubuyaki/internal/model"
)

// compile-time check that *DB implements backend.PostStore
var _ backend.PostStore = (*DB)(nil)

// ListPosts returns at most limit posts, newest first.
//
// Ties on created_at are broken by id: xids start with a timestamp, so a
// later insert sorts after an earlier one even within the same second.
func (db *DB) ListPosts(ctx context.Context, limit int) ([]model.Post, error) {
	if limit <= 0 {
		return []model.Post{}, nil
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, content, created_at
		 FROM posts
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	// CRITICAL: always close rows, or the connection never returns to the pool.
	defer rows.Close()

	posts := make([]model.Post, 0, limit)
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.Content, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	return posts, nil
}

// InsertPost stores a new post. ID and CreatedAt are generated when empty.
//
// The length check duplicates the table's CHECK constraint so callers get a
// validation error instead of a driver error string.
func (db *DB) InsertPost(ctx context.Context, post *model.Post) error {
	if err := post.Validate(); err != nil {
		return err
	}

	if post.ID == "" {
		post.ID = xid.New().String()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	post.CreatedAt = post.CreatedAt.UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, user_id, content, created_at)
		 VALUES (?, ?, ?, ?)`,
		post.ID,
		post.UserID,
		post.Content,
		post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting post: %w", err)
	}

	return nil
}
