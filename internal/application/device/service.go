package device

import (
	"context"
	"fmt"

	"github.com/inkeddraw/backend/internal/domain"
	"github.com/inkeddraw/backend/internal/infrastructure/sns"
)

type Service interface {
	List(ctx context.Context, userID string) ([]domain.Device, error)
	Get(ctx context.Context, deviceID string) (*domain.Device, error)
	// RegisterPush exchanges the device's push token for an SNS platform
	// endpoint and stores both on the device row.
	RegisterPush(ctx context.Context, userID, deviceID string, req domain.UpdateDeviceRequest) (*domain.Device, error)
	Delete(ctx context.Context, userID, deviceID string) error
}

type deviceStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Device, error)
	Get(ctx context.Context, deviceID string) (*domain.Device, error)
	Update(ctx context.Context, deviceID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, deviceID string) error
}

type service struct {
	repo deviceStore
	push sns.PushSender
}

func NewService(repo deviceStore, push sns.PushSender) Service {
	return &service{repo: repo, push: push}
}

func (s *service) List(ctx context.Context, userID string) ([]domain.Device, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) Get(ctx context.Context, deviceID string) (*domain.Device, error) {
	return s.repo.Get(ctx, deviceID)
}

func (s *service) RegisterPush(ctx context.Context, userID, deviceID string, req domain.UpdateDeviceRequest) (*domain.Device, error) {
	d, err := s.repo.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, fmt.Errorf("not your device: %w", domain.ErrForbidden)
	}

	updates := map[string]interface{}{}
	if req.Platform != nil {
		switch *req.Platform {
		case "ios", "android":
			updates["platform"] = *req.Platform
		default:
			return nil, fmt.Errorf("invalid platform: %w", domain.ErrBadRequest)
		}
	}
	if req.PushToken != nil {
		if s.push == nil {
			return nil, fmt.Errorf("push delivery not configured: %w", domain.ErrUpstream)
		}
		endpoint, err := s.push.RegisterDevice(ctx, *req.PushToken)
		if err != nil {
			return nil, err
		}
		updates["push_token"] = *req.PushToken
		updates["push_endpoint"] = endpoint
	}
	if len(updates) == 0 {
		return d, nil
	}
	if err := s.repo.Update(ctx, deviceID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, deviceID)
}

func (s *service) Delete(ctx context.Context, userID, deviceID string) error {
	d, err := s.repo.Get(ctx, deviceID)
	if err != nil {
		return err
	}
	if d.UserID != userID {
		return fmt.Errorf("not your device: %w", domain.ErrForbidden)
	}
	return s.repo.SoftDelete(ctx, deviceID)
}
