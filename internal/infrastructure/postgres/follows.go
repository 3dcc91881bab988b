package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/inkeddraw/backend/internal/domain"
)

// FollowRepo manages the social graph.
type FollowRepo struct {
	db *sql.DB
}

func NewFollowRepo(db *sql.DB) *FollowRepo { return &FollowRepo{db: db} }

// Follow inserts the edge; inserting an existing edge is a no-op.
func (r *FollowRepo) Follow(ctx context.Context, followerID, followeeID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO follows (follower_id, followee_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (follower_id, followee_id) DO NOTHING
	`, followerID, followeeID, time.Now().UTC())
	return err
}

func (r *FollowRepo) Unfollow(ctx context.Context, followerID, followeeID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`,
		followerID, followeeID)
	return err
}

func (r *FollowRepo) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2`,
		followerID, followeeID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// Stats returns the profile counters for one user.
func (r *FollowRepo) Stats(ctx context.Context, userID string) (*domain.ProfileStats, error) {
	var s domain.ProfileStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM follows WHERE followee_id = $1),
			(SELECT count(*) FROM follows WHERE follower_id = $1),
			(SELECT count(*) FROM posts WHERE user_id = $1 AND deleted_at IS NULL),
			(SELECT count(*) FROM collections WHERE user_id = $1 AND deleted_at IS NULL)
	`, userID).Scan(&s.Followers, &s.Following, &s.Posts, &s.Collections)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
