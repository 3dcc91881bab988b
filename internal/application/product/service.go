package product

import (
	"context"
	"time"

	"github.com/inkeddraw/backend/internal/domain"
	"github.com/inkeddraw/backend/internal/pkg/id"
)

type Service interface {
	Create(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error)
	Get(ctx context.Context, productID string) (*domain.Product, error)
	Search(ctx context.Context, q domain.ProductQuery) ([]domain.Product, int, error)
	Update(ctx context.Context, productID string, req domain.UpdateProductRequest) (*domain.Product, error)
	Delete(ctx context.Context, productID string) error

	Rate(ctx context.Context, productID, userID string, req domain.RateProductRequest) (*domain.Rating, error)
	GetRating(ctx context.Context, productID, userID string) (*domain.Rating, error)
}

type productStore interface {
	Put(ctx context.Context, p *domain.Product) error
	Get(ctx context.Context, id string) (*domain.Product, error)
	Search(ctx context.Context, q domain.ProductQuery) ([]domain.Product, int, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	HardDelete(ctx context.Context, id string) error
	Rate(ctx context.Context, rt *domain.Rating) error
	GetRating(ctx context.Context, productID, userID string) (*domain.Rating, error)
}

type service struct {
	repo productStore
}

func NewService(repo productStore) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	now := time.Now().UTC()
	p := &domain.Product{
		ID:          id.New(),
		Kind:        req.Kind,
		Name:        req.Name,
		Brand:       req.Brand,
		Origin:      req.Origin,
		Description: req.Description,
		Attrs:       req.Attrs,
		ImageURL:    req.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Attrs == nil {
		p.Attrs = map[string]string{}
	}
	if err := s.repo.Put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Get(ctx context.Context, productID string) (*domain.Product, error) {
	return s.repo.Get(ctx, productID)
}

func (s *service) Search(ctx context.Context, q domain.ProductQuery) ([]domain.Product, int, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 || q.PerPage > 100 {
		q.PerPage = 25
	}
	return s.repo.Search(ctx, q)
}

func (s *service) Update(ctx context.Context, productID string, req domain.UpdateProductRequest) (*domain.Product, error) {
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Brand != nil {
		updates["brand"] = *req.Brand
	}
	if req.Origin != nil {
		updates["origin"] = *req.Origin
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Attrs != nil {
		updates["attrs"] = *req.Attrs
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, productID, updates); err != nil {
			return nil, err
		}
	}
	return s.repo.Get(ctx, productID)
}

func (s *service) Delete(ctx context.Context, productID string) error {
	return s.repo.HardDelete(ctx, productID)
}

func (s *service) Rate(ctx context.Context, productID, userID string, req domain.RateProductRequest) (*domain.Rating, error) {
	if _, err := s.repo.Get(ctx, productID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	rt := &domain.Rating{
		ID:        id.New(),
		ProductID: productID,
		UserID:    userID,
		Score:     req.Score,
		Note:      req.Note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Rate(ctx, rt); err != nil {
		return nil, err
	}
	return s.repo.GetRating(ctx, productID, userID)
}

func (s *service) GetRating(ctx context.Context, productID, userID string) (*domain.Rating, error) {
	return s.repo.GetRating(ctx, productID, userID)
}
