package domain

import "time"

type Session struct {
	SessionID        string    `json:"id"`
	UserID           string    `json:"user_id"`
	DeviceID         string    `json:"device_id"`
	Enable           bool      `json:"enable"`
	RefreshToken     string    `json:"-"`
	RefreshExpiresAt int64     `json:"refresh_expires_at"`
	CreatedAt        time.Time `json:"created"`
	UpdatedAt        time.Time `json:"updated"`
	User             *User     `json:"user,omitempty"`
}
