package collection

import (
	"context"
	"fmt"
	"time"

	"github.com/inkeddraw/backend/internal/domain"
	"github.com/inkeddraw/backend/internal/infrastructure/posthog"
	"github.com/inkeddraw/backend/internal/pkg/id"
)

type Service interface {
	Create(ctx context.Context, userID string, req domain.CreateCollectionRequest) (*domain.Collection, error)
	Get(ctx context.Context, viewerID, collectionID string) (*domain.Collection, error)
	ListByUser(ctx context.Context, viewerID, ownerID string) ([]domain.Collection, error)
	Update(ctx context.Context, userID, collectionID string, req domain.UpdateCollectionRequest) (*domain.Collection, error)
	Delete(ctx context.Context, userID, collectionID string) error

	AddItem(ctx context.Context, userID, collectionID string, req domain.CreateItemRequest) (*domain.CollectionItem, error)
	ListItems(ctx context.Context, viewerID, collectionID string, limit, page int) ([]domain.CollectionItem, error)
	UpdateItem(ctx context.Context, userID, itemID string, req domain.UpdateItemRequest) (*domain.CollectionItem, error)
	DeleteItem(ctx context.Context, userID, itemID string) error
}

type collectionStore interface {
	Put(ctx context.Context, c *domain.Collection) error
	Get(ctx context.Context, id string) (*domain.Collection, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Collection, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, id string) error

	PutItem(ctx context.Context, it *domain.CollectionItem) error
	GetItem(ctx context.Context, itemID string) (*domain.CollectionItem, error)
	ListItems(ctx context.Context, collectionID string, limit, offset int) ([]domain.CollectionItem, error)
	UpdateItem(ctx context.Context, itemID string, updates map[string]interface{}) error
	SoftDeleteItem(ctx context.Context, itemID string) error
}

type service struct {
	repo    collectionStore
	tracker posthog.Tracker
}

func NewService(repo collectionStore, tracker posthog.Tracker) Service {
	return &service{repo: repo, tracker: tracker}
}

func (s *service) Create(ctx context.Context, userID string, req domain.CreateCollectionRequest) (*domain.Collection, error) {
	if req.Visibility == "" {
		req.Visibility = "private"
	}
	now := time.Now().UTC()
	c := &domain.Collection{
		ID:          id.New(),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Visibility:  req.Visibility,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get enforces visibility: private collections are owner-only.
func (s *service) Get(ctx context.Context, viewerID, collectionID string) (*domain.Collection, error) {
	c, err := s.repo.Get(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if c.Visibility == "private" && c.UserID != viewerID {
		return nil, fmt.Errorf("collection is private: %w", domain.ErrForbidden)
	}
	return c, nil
}

func (s *service) ListByUser(ctx context.Context, viewerID, ownerID string) ([]domain.Collection, error) {
	cols, err := s.repo.ListByUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if viewerID == ownerID {
		return cols, nil
	}
	visible := cols[:0]
	for _, c := range cols {
		if c.Visibility == "public" {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

func (s *service) Update(ctx context.Context, userID, collectionID string, req domain.UpdateCollectionRequest) (*domain.Collection, error) {
	if err := s.requireOwner(ctx, userID, collectionID); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Visibility != nil {
		updates["visibility"] = *req.Visibility
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, collectionID, updates); err != nil {
			return nil, err
		}
	}
	return s.repo.Get(ctx, collectionID)
}

func (s *service) Delete(ctx context.Context, userID, collectionID string) error {
	if err := s.requireOwner(ctx, userID, collectionID); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, collectionID)
}

func (s *service) AddItem(ctx context.Context, userID, collectionID string, req domain.CreateItemRequest) (*domain.CollectionItem, error) {
	if err := s.requireOwner(ctx, userID, collectionID); err != nil {
		return nil, err
	}
	var acquiredAt *time.Time
	if req.AcquiredAt != nil {
		t, err := time.Parse("2006-01-02", *req.AcquiredAt)
		if err != nil {
			return nil, fmt.Errorf("acquired_at must be in YYYY-MM-DD format: %w", domain.ErrBadRequest)
		}
		acquiredAt = &t
	}
	now := time.Now().UTC()
	it := &domain.CollectionItem{
		ID:           id.New(),
		CollectionID: collectionID,
		UserID:       userID,
		Kind:         req.Kind,
		ProductID:    req.ProductID,
		Name:         req.Name,
		Rating:       req.Rating,
		Price:        req.Price,
		Currency:     req.Currency,
		Notes:        req.Notes,
		Tags:         req.Tags,
		AcquiredAt:   acquiredAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.PutItem(ctx, it); err != nil {
		return nil, err
	}
	s.tracker.Capture(userID, "item_added", map[string]interface{}{"kind": it.Kind})
	return it, nil
}

func (s *service) ListItems(ctx context.Context, viewerID, collectionID string, limit, page int) ([]domain.CollectionItem, error) {
	if _, err := s.Get(ctx, viewerID, collectionID); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	return s.repo.ListItems(ctx, collectionID, limit, (page-1)*limit)
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID string, req domain.UpdateItemRequest) (*domain.CollectionItem, error) {
	it, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if it.UserID != userID {
		return nil, fmt.Errorf("not your item: %w", domain.ErrForbidden)
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Rating != nil {
		updates["rating"] = *req.Rating
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.Tags != nil {
		updates["tags"] = *req.Tags
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateItem(ctx, itemID, updates); err != nil {
			return nil, err
		}
	}
	return s.repo.GetItem(ctx, itemID)
}

func (s *service) DeleteItem(ctx context.Context, userID, itemID string) error {
	it, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if it.UserID != userID {
		return fmt.Errorf("not your item: %w", domain.ErrForbidden)
	}
	return s.repo.SoftDeleteItem(ctx, itemID)
}

func (s *service) requireOwner(ctx context.Context, userID, collectionID string) error {
	c, err := s.repo.Get(ctx, collectionID)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return fmt.Errorf("not your collection: %w", domain.ErrForbidden)
	}
	return nil
}
