package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/tsubuyaki/internal/backend"
	"github.com/sakif/tsubuyaki/internal/model"
)

var _ backend.PostStore = (*DB)(nil)

func (d *DB) ListPosts(ctx context.Context, limit int) ([]model.Post, error) {
	if limit <= 0 {
		return []model.Post{}, nil
	}

	rows, err := d.db.Query(ctx,
		`SELECT id, user_id, content, created_at
		 FROM posts
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, limit)
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.Content, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating posts: %w", err)
	}
	return posts, nil
}

func (d *DB) InsertPost(ctx context.Context, post *model.Post) error {
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

	_, err := d.db.Exec(ctx,
		`INSERT INTO posts (id, user_id, content, created_at) VALUES ($1, $2, $3, $4)`,
		post.ID, post.UserID, post.Content, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: inserting post: %w", err)
	}

	d.logger.Debug("post inserted", "post_id", post.ID, "user_id", post.UserID)
	return nil
}
