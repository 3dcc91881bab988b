package device

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/inkeddraw/backend/internal/domain"
)

type mockDeviceStore struct{ mock.Mock }

func (m *mockDeviceStore) ListByUser(ctx context.Context, userID string) ([]domain.Device, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Device), args.Error(1)
}
func (m *mockDeviceStore) Get(ctx context.Context, deviceID string) (*domain.Device, error) {
	args := m.Called(ctx, deviceID)
	if d, _ := args.Get(0).(*domain.Device); d != nil {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockDeviceStore) Update(ctx context.Context, deviceID string, updates map[string]interface{}) error {
	return m.Called(ctx, deviceID, updates).Error(0)
}
func (m *mockDeviceStore) SoftDelete(ctx context.Context, deviceID string) error {
	return m.Called(ctx, deviceID).Error(0)
}

type mockPush struct{ mock.Mock }

func (m *mockPush) RegisterDevice(ctx context.Context, pushToken string) (string, error) {
	args := m.Called(ctx, pushToken)
	return args.String(0), args.Error(1)
}
func (m *mockPush) Push(ctx context.Context, endpointARN, title, body string, data map[string]string) error {
	return m.Called(ctx, endpointARN, title, body, data).Error(0)
}

func strptr(s string) *string { return &s }

func TestRegisterPush_NotYourDevice(t *testing.T) {
	repo := &mockDeviceStore{}
	repo.On("Get", mock.Anything, "d1").Return(&domain.Device{DeviceID: "d1", UserID: "u1"}, nil)

	svc := NewService(repo, &mockPush{})
	_, err := svc.RegisterPush(context.Background(), "u2", "d1", domain.UpdateDeviceRequest{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestRegisterPush_ExchangesTokenForEndpoint(t *testing.T) {
	repo := &mockDeviceStore{}
	repo.On("Get", mock.Anything, "d1").Return(&domain.Device{DeviceID: "d1", UserID: "u1"}, nil)
	repo.On("Update", mock.Anything, "d1", mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["push_token"] == "tok-1" && u["push_endpoint"] == "arn:aws:sns:endpoint/1"
	})).Return(nil)

	push := &mockPush{}
	push.On("RegisterDevice", mock.Anything, "tok-1").Return("arn:aws:sns:endpoint/1", nil)

	svc := NewService(repo, push)
	_, err := svc.RegisterPush(context.Background(), "u1", "d1", domain.UpdateDeviceRequest{PushToken: strptr("tok-1")})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRegisterPush_NoSenderConfigured(t *testing.T) {
	repo := &mockDeviceStore{}
	repo.On("Get", mock.Anything, "d1").Return(&domain.Device{DeviceID: "d1", UserID: "u1"}, nil)

	svc := NewService(repo, nil)
	_, err := svc.RegisterPush(context.Background(), "u1", "d1", domain.UpdateDeviceRequest{PushToken: strptr("tok-1")})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterPush_InvalidPlatform(t *testing.T) {
	repo := &mockDeviceStore{}
	repo.On("Get", mock.Anything, "d1").Return(&domain.Device{DeviceID: "d1", UserID: "u1"}, nil)

	svc := NewService(repo, &mockPush{})
	_, err := svc.RegisterPush(context.Background(), "u1", "d1", domain.UpdateDeviceRequest{Platform: strptr("windows")})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestDelete_OwnerOnly(t *testing.T) {
	repo := &mockDeviceStore{}
	repo.On("Get", mock.Anything, "d1").Return(&domain.Device{DeviceID: "d1", UserID: "u1"}, nil)

	svc := NewService(repo, &mockPush{})
	err := svc.Delete(context.Background(), "u2", "d1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	repo.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
}
