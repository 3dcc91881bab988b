package shop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkeddraw/backend/internal/domain"
	"github.com/inkeddraw/backend/internal/infrastructure/posthog"
	"github.com/inkeddraw/backend/internal/pkg/id"
)

const (
	defaultRadiusKm = 25
	maxRadiusKm     = 200
	maxResults      = 50
)

type Service interface {
	Create(ctx context.Context, req domain.UpsertShopRequest) (*domain.Shop, error)
	Get(ctx context.Context, shopID string) (*domain.Shop, error)
	Update(ctx context.Context, shopID string, req domain.UpsertShopRequest) (*domain.Shop, error)
	Delete(ctx context.Context, shopID string) error
	Nearby(ctx context.Context, userID string, q domain.NearbyQuery) ([]domain.NearbyShop, error)
}

type shopStore interface {
	Put(ctx context.Context, s *domain.Shop) error
	Get(ctx context.Context, id string) (*domain.Shop, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	HardDelete(ctx context.Context, id string) error
	Nearby(ctx context.Context, q domain.NearbyQuery) ([]domain.NearbyShop, error)
}

type cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type service struct {
	repo     shopStore
	cache    cache
	tracker  posthog.Tracker
	log      zerolog.Logger
	cacheTTL time.Duration
}

func NewService(repo shopStore, c cache, tracker posthog.Tracker, log zerolog.Logger, cacheTTL time.Duration) Service {
	return &service{
		repo:     repo,
		cache:    c,
		tracker:  tracker,
		log:      log.With().Str("component", "shop").Logger(),
		cacheTTL: cacheTTL,
	}
}

func (s *service) Create(ctx context.Context, req domain.UpsertShopRequest) (*domain.Shop, error) {
	now := time.Now().UTC()
	sh := &domain.Shop{
		ID:          id.New(),
		Name:        req.Name,
		Address:     req.Address,
		City:        req.City,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Website:     req.Website,
		Phone:       req.Phone,
		Specialties: req.Specialties,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Put(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

func (s *service) Get(ctx context.Context, shopID string) (*domain.Shop, error) {
	return s.repo.Get(ctx, shopID)
}

func (s *service) Update(ctx context.Context, shopID string, req domain.UpsertShopRequest) (*domain.Shop, error) {
	updates := map[string]interface{}{
		"name":        req.Name,
		"address":     req.Address,
		"city":        req.City,
		"latitude":    req.Latitude,
		"longitude":   req.Longitude,
		"website":     req.Website,
		"phone":       req.Phone,
		"specialties": req.Specialties,
	}
	if err := s.repo.Update(ctx, shopID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, shopID)
}

func (s *service) Delete(ctx context.Context, shopID string) error {
	return s.repo.HardDelete(ctx, shopID)
}

// Nearby serves proximity searches through a short-TTL cache. Coordinates are
// rounded to ~1km in the key so close-by queries share entries.
func (s *service) Nearby(ctx context.Context, userID string, q domain.NearbyQuery) ([]domain.NearbyShop, error) {
	if q.Latitude < -90 || q.Latitude > 90 || q.Longitude < -180 || q.Longitude > 180 {
		return nil, fmt.Errorf("coordinates out of range: %w", domain.ErrBadRequest)
	}
	if q.RadiusKm <= 0 {
		q.RadiusKm = defaultRadiusKm
	}
	if q.RadiusKm > maxRadiusKm {
		q.RadiusKm = maxRadiusKm
	}
	if q.Limit < 1 || q.Limit > maxResults {
		q.Limit = 20
	}

	key := fmt.Sprintf("shops:near:%.2f:%.2f:%.0f:%d", q.Latitude, q.Longitude, q.RadiusKm, q.Limit)
	var cached []domain.NearbyShop
	if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.log.Warn().Err(err).Msg("shop cache read failed")
	}

	shops, err := s.repo.Nearby(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, key, shops, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("shop cache write failed")
	}
	s.tracker.Capture(userID, "shop_search", map[string]interface{}{"radius_km": q.RadiusKm})
	return shops, nil
}
