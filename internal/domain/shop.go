package domain

import "time"

type Shop struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Website     string    `json:"website,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Specialties []string  `json:"specialties,omitempty"` // subset of product kinds
	CreatedAt   time.Time `json:"created"`
	UpdatedAt   time.Time `json:"updated"`
}

// NearbyShop is a shop row plus its Haversine distance from the query point.
type NearbyShop struct {
	Shop
	DistanceKm float64 `json:"distance_km"`
}

type UpsertShopRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Address     string   `json:"address" validate:"required"`
	City        string   `json:"city" validate:"required"`
	Latitude    float64  `json:"latitude" validate:"min=-90,max=90"`
	Longitude   float64  `json:"longitude" validate:"min=-180,max=180"`
	Website     string   `json:"website" validate:"omitempty,url"`
	Phone       string   `json:"phone"`
	Specialties []string `json:"specialties" validate:"dive,oneof=cigar wine beer"`
}

// NearbyQuery bounds a shop proximity search.
type NearbyQuery struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	Limit     int
}
