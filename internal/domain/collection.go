package domain

import "time"

// Product kinds shared by collections, catalog and posts.
const (
	KindCigar = "cigar"
	KindWine  = "wine"
	KindBeer  = "beer"
)

// ValidKind reports whether k is one of the supported product kinds.
func ValidKind(k string) bool {
	return k == KindCigar || k == KindWine || k == KindBeer
}

type Collection struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Visibility  string     `json:"visibility"` // "public" | "private"
	ItemCount   int        `json:"item_count"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created"`
	UpdatedAt   time.Time  `json:"updated"`
}

type CollectionItem struct {
	ID           string     `json:"id"`
	CollectionID string     `json:"collection_id"`
	UserID       string     `json:"user_id"`
	Kind         string     `json:"kind"`
	ProductID    *string    `json:"product_id,omitempty"`
	Name         string     `json:"name"`
	Rating       *int       `json:"rating,omitempty"` // 1..5
	Price        *float64   `json:"price,omitempty"`
	Currency     string     `json:"currency,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	AcquiredAt   *time.Time `json:"acquired_at,omitempty"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	CreatedAt    time.Time  `json:"created"`
	UpdatedAt    time.Time  `json:"updated"`
}

type CreateCollectionRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description"`
	Visibility  string `json:"visibility" validate:"omitempty,oneof=public private"`
}

type UpdateCollectionRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Visibility  *string `json:"visibility" validate:"omitempty,oneof=public private"`
}

type CreateItemRequest struct {
	Kind       string   `json:"kind" validate:"required,oneof=cigar wine beer"`
	ProductID  *string  `json:"product_id"`
	Name       string   `json:"name" validate:"required,max=200"`
	Rating     *int     `json:"rating" validate:"omitempty,min=1,max=5"`
	Price      *float64 `json:"price" validate:"omitempty,gte=0"`
	Currency   string   `json:"currency" validate:"omitempty,len=3"`
	Notes      string   `json:"notes"`
	Tags       []string `json:"tags"`
	AcquiredAt *string  `json:"acquired_at"` // YYYY-MM-DD
}

type UpdateItemRequest struct {
	Name   *string   `json:"name"`
	Rating *int      `json:"rating" validate:"omitempty,min=1,max=5"`
	Price  *float64  `json:"price" validate:"omitempty,gte=0"`
	Notes  *string   `json:"notes"`
	Tags   *[]string `json:"tags"`
}
