package domain

import "time"

// Product is a catalog row. Kind-specific attributes (cigar wrapper and
// strength, wine vintage and varietal, beer style and ABV) live in Attrs.
type Product struct {
	ID           string            `json:"id"`
	Kind         string            `json:"kind"`
	Name         string            `json:"name"`
	Brand        string            `json:"brand"`
	Origin       string            `json:"origin,omitempty"`
	Description  string            `json:"description,omitempty"`
	Attrs        map[string]string `json:"attrs,omitempty"`
	ImageURL     string            `json:"image_url,omitempty"`
	AvgRating    float64           `json:"avg_rating"`
	RatingsCount int               `json:"ratings_count"`
	CreatedAt    time.Time         `json:"created"`
	UpdatedAt    time.Time         `json:"updated"`
}

// Rating is one user's score for a catalog product.
type Rating struct {
	ID        string     `json:"id"`
	ProductID string     `json:"product_id"`
	UserID    string     `json:"user_id"`
	Score     int        `json:"score"` // 1..5
	Note      string     `json:"note,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created"`
	UpdatedAt time.Time  `json:"updated"`
}

type CreateProductRequest struct {
	Kind        string            `json:"kind" validate:"required,oneof=cigar wine beer"`
	Name        string            `json:"name" validate:"required,max=200"`
	Brand       string            `json:"brand" validate:"required,max=120"`
	Origin      string            `json:"origin"`
	Description string            `json:"description"`
	Attrs       map[string]string `json:"attrs"`
	ImageURL    string            `json:"image_url" validate:"omitempty,url"`
}

type UpdateProductRequest struct {
	Name        *string            `json:"name"`
	Brand       *string            `json:"brand"`
	Origin      *string            `json:"origin"`
	Description *string            `json:"description"`
	Attrs       *map[string]string `json:"attrs"`
	ImageURL    *string            `json:"image_url" validate:"omitempty,url"`
}

type RateProductRequest struct {
	Score int    `json:"score" validate:"required,min=1,max=5"`
	Note  string `json:"note"`
}

// ProductQuery filters the catalog search.
type ProductQuery struct {
	Kind    string
	Search  string
	Page    int
	PerPage int
}
