package domain

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	UserID       string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	DisplayName  string     `json:"display_name"`
	Bio          string     `json:"bio"`
	AvatarURL    string     `json:"avatar_url"`
	// Preferred product categories, e.g. ["cigar","wine"].
	Preferences []string   `json:"preferences"`
	City        string     `json:"city"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	Private     bool       `json:"private"`
	AgeVerified bool       `json:"age_verified"`
	Birthday    time.Time  `json:"birthday"`
	Enable      bool       `json:"enable"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created"`
	UpdatedAt   time.Time  `json:"updated"`
}

type CreateUserRequest struct {
	Username    string  `json:"username" validate:"required,min=3,max=30"`
	Password    string  `json:"password" validate:"required,min=8,max=72"`
	Email       string  `json:"email" validate:"required,email"`
	DisplayName string  `json:"display_name"`
	Birthday    string  `json:"birthday" validate:"required"` // YYYY-MM-DD
	DeviceUUID  *string `json:"device_uuid"`
}

type UpdateUserRequest struct {
	Username    *string   `json:"username"`
	Email       *string   `json:"email" validate:"omitempty,email"`
	DisplayName *string   `json:"display_name"`
	Bio         *string   `json:"bio"`
	AvatarURL   *string   `json:"avatar_url"`
	Preferences *[]string `json:"preferences"`
	City        *string   `json:"city"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	Private     *bool     `json:"private"`
	Role        *string   `json:"role"`
}

// Follow is an edge in the social graph: follower follows followee.
type Follow struct {
	FollowerID string    `json:"follower_id"`
	FolloweeID string    `json:"followee_id"`
	CreatedAt  time.Time `json:"created"`
}

// ProfileStats aggregates the public counters shown on a profile page.
type ProfileStats struct {
	Followers   int `json:"followers"`
	Following   int `json:"following"`
	Posts       int `json:"posts"`
	Collections int `json:"collections"`
}
