package domain

import "time"

type Post struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Body         string     `json:"body"`
	ImageURL     string     `json:"image_url,omitempty"`
	ProductID    *string    `json:"product_id,omitempty"`
	Kind         string     `json:"kind,omitempty"`
	LikeCount    int        `json:"like_count"`
	CommentCount int        `json:"comment_count"`
	Liked        bool       `json:"liked"` // whether the requesting user liked it
	Author       *User      `json:"author,omitempty"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	CreatedAt    time.Time  `json:"created"`
	UpdatedAt    time.Time  `json:"updated"`
}

type Comment struct {
	ID        string     `json:"id"`
	PostID    string     `json:"post_id"`
	UserID    string     `json:"user_id"`
	Body      string     `json:"body"`
	Author    *User      `json:"author,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created"`
	UpdatedAt time.Time  `json:"updated"`
}

type CreatePostRequest struct {
	Body      string  `json:"body" validate:"required,max=2000"`
	ImageURL  string  `json:"image_url" validate:"omitempty,url"`
	ProductID *string `json:"product_id"`
	Kind      string  `json:"kind" validate:"omitempty,oneof=cigar wine beer"`
}

type CreateCommentRequest struct {
	Body string `json:"body" validate:"required,max=1000"`
}

// FeedCursor is an opaque keyset cursor over (created_at, id), encoded by the
// feed handler. Zero value means "from the top".
type FeedCursor struct {
	CreatedAt time.Time
	ID        string
}
