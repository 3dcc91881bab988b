package domain

import "time"

// Device is a mobile install. PushEndpoint is the SNS platform endpoint ARN
// created from PushToken; it is never exposed to clients.
type Device struct {
	DeviceID     string    `json:"id"`
	UUID         string    `json:"uuid"`
	UserID       string    `json:"user_id"`
	PushToken    *string   `json:"push_token"`
	PushEndpoint *string   `json:"-"`
	Platform     string    `json:"platform"` // "ios" | "android"
	Enable       bool      `json:"enable"`
	CreatedAt    time.Time `json:"created"`
	UpdatedAt    time.Time `json:"updated"`
}

type UpdateDeviceRequest struct {
	PushToken *string `json:"push_token"`
	Platform  *string `json:"platform"`
}
