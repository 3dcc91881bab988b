package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/inkeddraw/backend/internal/domain"
)

// --- mocks ---

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error {
	return m.Called(ctx, sessionID, newToken, newExpiry).Error(0)
}
func (m *mockSessionStore) Disable(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockDeviceStore struct{ mock.Mock }

func (m *mockDeviceStore) GetByUUID(ctx context.Context, uuid string) (*domain.Device, error) {
	args := m.Called(ctx, uuid)
	if d, _ := args.Get(0).(*domain.Device); d != nil {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockDeviceStore) Put(ctx context.Context, d *domain.Device) error {
	return m.Called(ctx, d).Error(0)
}

type mockJWTSigner struct{ mock.Mock }

func (m *mockJWTSigner) Sign(userID, deviceID, role, sessionID string) (string, error) {
	args := m.Called(userID, deviceID, role, sessionID)
	return args.String(0), args.Error(1)
}

func activeUser(password string) *domain.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return &domain.User{
		UserID:       "u1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Enable:       true,
	}
}

// --- Login ---

func TestLogin_UnknownUser(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "nobody").Return(nil, domain.ErrNotFound)
	us.On("GetByEmail", mock.Anything, "nobody").Return(nil, domain.ErrNotFound)

	svc := NewService(&mockSessionStore{}, us, &mockDeviceStore{}, &mockJWTSigner{}, time.Hour)
	_, err := svc.Login(context.Background(), LoginRequest{Username: "nobody", Password: "x"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_ByEmailFallback(t *testing.T) {
	u := activeUser("password123")
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice@example.com").Return(nil, domain.ErrNotFound)
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)

	ds := &mockDeviceStore{}
	ds.On("Put", mock.Anything, mock.AnythingOfType("*domain.Device")).Return(nil)
	ss := &mockSessionStore{}
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)
	jwt := &mockJWTSigner{}
	jwt.On("Sign", "u1", mock.Anything, domain.RoleUser, mock.Anything).Return("a.b.c", nil)

	svc := NewService(ss, us, ds, jwt, time.Hour)
	res, err := svc.Login(context.Background(), LoginRequest{Username: "alice@example.com", Password: "password123"})

	require.NoError(t, err)
	assert.Equal(t, "a.b.c", res.Bearer)
	assert.NotEmpty(t, res.RefreshToken)
	require.NotNil(t, res.Session.User)
	assert.Equal(t, "u1", res.Session.UserID)
}

func TestLogin_DisabledAccount(t *testing.T) {
	u := activeUser("password123")
	u.Enable = false
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(u, nil)

	svc := NewService(&mockSessionStore{}, us, &mockDeviceStore{}, &mockJWTSigner{}, time.Hour)
	_, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "password123"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestLogin_WrongPassword(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(activeUser("password123"), nil)

	svc := NewService(&mockSessionStore{}, us, &mockDeviceStore{}, &mockJWTSigner{}, time.Hour)
	_, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "wrong"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_ReusesKnownDevice(t *testing.T) {
	u := activeUser("password123")
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(u, nil)

	devUUID := "dev-uuid-1"
	ds := &mockDeviceStore{}
	ds.On("GetByUUID", mock.Anything, devUUID).Return(&domain.Device{DeviceID: "d1", UUID: devUUID}, nil)

	ss := &mockSessionStore{}
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)
	jwt := &mockJWTSigner{}
	jwt.On("Sign", "u1", "d1", domain.RoleUser, mock.Anything).Return("a.b.c", nil)

	svc := NewService(ss, us, ds, jwt, time.Hour)
	res, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "password123", DeviceUUID: &devUUID})

	require.NoError(t, err)
	assert.Equal(t, "d1", res.Session.DeviceID)
	ds.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

// --- Refresh ---

func TestRefresh_UnknownToken(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("GetByRefreshToken", mock.Anything, "bad").Return(nil, domain.ErrNotFound)

	svc := NewService(ss, &mockUserStore{}, &mockDeviceStore{}, &mockJWTSigner{}, time.Hour)
	_, _, err := svc.Refresh(context.Background(), "bad")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestRefresh_ExpiredToken(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("GetByRefreshToken", mock.Anything, "old").Return(&domain.Session{
		SessionID:        "s1",
		RefreshExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}, nil)

	svc := NewService(ss, &mockUserStore{}, &mockDeviceStore{}, &mockJWTSigner{}, time.Hour)
	_, _, err := svc.Refresh(context.Background(), "old")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	ss.AssertNotCalled(t, "RotateRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefresh_RotatesToken(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("GetByRefreshToken", mock.Anything, "tok").Return(&domain.Session{
		SessionID:        "s1",
		UserID:           "u1",
		DeviceID:         "d1",
		RefreshExpiresAt: time.Now().Add(time.Hour).Unix(),
	}, nil)
	ss.On("RotateRefreshToken", mock.Anything, "s1", mock.Anything, mock.Anything).Return(nil)

	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(activeUser("x"), nil)

	jwt := &mockJWTSigner{}
	jwt.On("Sign", "u1", "d1", domain.RoleUser, "s1").Return("new.jwt", nil)

	svc := NewService(ss, us, &mockDeviceStore{}, jwt, time.Hour)
	bearer, newToken, err := svc.Refresh(context.Background(), "tok")

	require.NoError(t, err)
	assert.Equal(t, "new.jwt", bearer)
	assert.NotEqual(t, "tok", newToken)
	ss.AssertExpectations(t)
}

// --- Logout / GetCurrent ---

func TestLogout(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("Disable", mock.Anything, "s1").Return(nil)

	svc := NewService(ss, &mockUserStore{}, &mockDeviceStore{}, &mockJWTSigner{}, time.Hour)
	require.NoError(t, svc.Logout(context.Background(), "s1"))
	ss.AssertExpectations(t)
}

func TestGetCurrent_HydratesUser(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("Get", mock.Anything, "s1").Return(&domain.Session{SessionID: "s1", UserID: "u1"}, nil)
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)

	svc := NewService(ss, us, &mockDeviceStore{}, &mockJWTSigner{}, time.Hour)
	sess, err := svc.GetCurrent(context.Background(), "s1")

	require.NoError(t, err)
	require.NotNil(t, sess.User)
	assert.Equal(t, "u1", sess.User.UserID)
}
