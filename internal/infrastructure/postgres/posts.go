package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/inkeddraw/backend/internal/domain"
)

// postSelect joins counters and the viewer's like state onto each post row.
const postSelect = `
	SELECT p.id, p.user_id, p.body, p.image_url, p.product_id, p.kind,
		p.deleted_at, p.created_at, p.updated_at,
		(SELECT count(*) FROM likes l WHERE l.post_id = p.id),
		(SELECT count(*) FROM comments c WHERE c.post_id = p.id AND c.deleted_at IS NULL),
		EXISTS (SELECT 1 FROM likes l WHERE l.post_id = p.id AND l.user_id = $1),
		u.username, u.display_name, u.avatar_url
	FROM posts p
	JOIN users u ON u.user_id = p.user_id`

// PostRepo provides typed Postgres operations for posts, comments and likes.
type PostRepo struct {
	db *sql.DB
}

func NewPostRepo(db *sql.DB) *PostRepo { return &PostRepo{db: db} }

func (r *PostRepo) Put(ctx context.Context, p *domain.Post) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (id, user_id, body, image_url, product_id, kind, deleted_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, p.ID, p.UserID, p.Body, p.ImageURL, p.ProductID, p.Kind, p.DeletedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// Get loads one post with counters as seen by viewerID.
func (r *PostRepo) Get(ctx context.Context, postID, viewerID string) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx,
		postSelect+` WHERE p.id = $2 AND p.deleted_at IS NULL`, viewerID, postID)
	return scanPost(row)
}

// HomeFeed returns posts authored by viewerID or anyone they follow, newest
// first, keyset-paginated on (created_at, id).
func (r *PostRepo) HomeFeed(ctx context.Context, viewerID string, cursor *domain.FeedCursor, limit int) ([]domain.Post, error) {
	query := postSelect + `
		WHERE p.deleted_at IS NULL
		AND (p.user_id = $1 OR p.user_id IN (SELECT followee_id FROM follows WHERE follower_id = $1))`
	args := []interface{}{viewerID}
	if cursor != nil {
		query += ` AND (p.created_at, p.id) < ($2, $3)`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}
	query += fmt.Sprintf(` ORDER BY p.created_at DESC, p.id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	return r.queryPosts(ctx, query, args...)
}

// DiscoverFeed returns public posts from everyone, newest first.
func (r *PostRepo) DiscoverFeed(ctx context.Context, viewerID string, cursor *domain.FeedCursor, limit int) ([]domain.Post, error) {
	query := postSelect + `
		WHERE p.deleted_at IS NULL AND NOT u.private`
	args := []interface{}{viewerID}
	if cursor != nil {
		query += ` AND (p.created_at, p.id) < ($2, $3)`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}
	query += fmt.Sprintf(` ORDER BY p.created_at DESC, p.id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	return r.queryPosts(ctx, query, args...)
}

func (r *PostRepo) queryPosts(ctx context.Context, query string, args ...interface{}) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

func (r *PostRepo) SoftDelete(ctx context.Context, postID string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE posts SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		postID, now)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// --- likes ---

// Like inserts the like edge. Returns true when the edge is new, false when
// the user had already liked the post.
func (r *PostRepo) Like(ctx context.Context, postID, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO likes (post_id, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`, postID, userID, time.Now().UTC())
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *PostRepo) Unlike(ctx context.Context, postID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	return err
}

// --- comments ---

func (r *PostRepo) PutComment(ctx context.Context, c *domain.Comment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO comments (id, post_id, user_id, body, deleted_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, c.ID, c.PostID, c.UserID, c.Body, c.DeletedAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
			return domain.ErrNotFound
		}
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *PostRepo) GetComment(ctx context.Context, commentID string) (*domain.Comment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, post_id, user_id, body, deleted_at, created_at, updated_at
		FROM comments WHERE id = $1 AND deleted_at IS NULL
	`, commentID)
	var c domain.Comment
	err := row.Scan(&c.ID, &c.PostID, &c.UserID, &c.Body, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapRowErr(err)
	}
	return &c, nil
}

func (r *PostRepo) ListComments(ctx context.Context, postID string, limit, offset int) ([]domain.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.post_id, c.user_id, c.body, c.deleted_at, c.created_at, c.updated_at,
			u.username, u.display_name, u.avatar_url
		FROM comments c
		JOIN users u ON u.user_id = c.user_id
		WHERE c.post_id = $1 AND c.deleted_at IS NULL
		ORDER BY c.created_at
		LIMIT $2 OFFSET $3
	`, postID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var (
			c      domain.Comment
			author domain.User
		)
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Body, &c.DeletedAt,
			&c.CreatedAt, &c.UpdatedAt,
			&author.Username, &author.DisplayName, &author.AvatarURL); err != nil {
			return nil, err
		}
		author.UserID = c.UserID
		c.Author = &author
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *PostRepo) SoftDeleteComment(ctx context.Context, commentID string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE comments SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		commentID, now)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanPost(row rowScanner) (*domain.Post, error) {
	var (
		p      domain.Post
		author domain.User
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Body, &p.ImageURL, &p.ProductID, &p.Kind,
		&p.DeletedAt, &p.CreatedAt, &p.UpdatedAt,
		&p.LikeCount, &p.CommentCount, &p.Liked,
		&author.Username, &author.DisplayName, &author.AvatarURL)
	if err != nil {
		return nil, mapRowErr(err)
	}
	author.UserID = p.UserID
	p.Author = &author
	return &p, nil
}
