package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/inkeddraw/backend/internal/domain"
	"github.com/inkeddraw/backend/internal/infrastructure/posthog"
)

// --- mocks ---

type mockPostStore struct{ mock.Mock }

func (m *mockPostStore) Put(ctx context.Context, p *domain.Post) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockPostStore) Get(ctx context.Context, postID, viewerID string) (*domain.Post, error) {
	args := m.Called(ctx, postID, viewerID)
	if p, _ := args.Get(0).(*domain.Post); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockPostStore) HomeFeed(ctx context.Context, viewerID string, cursor *domain.FeedCursor, limit int) ([]domain.Post, error) {
	args := m.Called(ctx, viewerID, cursor, limit)
	return args.Get(0).([]domain.Post), args.Error(1)
}
func (m *mockPostStore) DiscoverFeed(ctx context.Context, viewerID string, cursor *domain.FeedCursor, limit int) ([]domain.Post, error) {
	args := m.Called(ctx, viewerID, cursor, limit)
	return args.Get(0).([]domain.Post), args.Error(1)
}
func (m *mockPostStore) SoftDelete(ctx context.Context, postID string) error {
	return m.Called(ctx, postID).Error(0)
}
func (m *mockPostStore) Like(ctx context.Context, postID, userID string) (bool, error) {
	args := m.Called(ctx, postID, userID)
	return args.Bool(0), args.Error(1)
}
func (m *mockPostStore) Unlike(ctx context.Context, postID, userID string) error {
	return m.Called(ctx, postID, userID).Error(0)
}
func (m *mockPostStore) PutComment(ctx context.Context, c *domain.Comment) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockPostStore) GetComment(ctx context.Context, commentID string) (*domain.Comment, error) {
	args := m.Called(ctx, commentID)
	if c, _ := args.Get(0).(*domain.Comment); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockPostStore) ListComments(ctx context.Context, postID string, limit, offset int) ([]domain.Comment, error) {
	args := m.Called(ctx, postID, limit, offset)
	return args.Get(0).([]domain.Comment), args.Error(1)
}
func (m *mockPostStore) SoftDeleteComment(ctx context.Context, commentID string) error {
	return m.Called(ctx, commentID).Error(0)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockDeviceStore struct{ mock.Mock }

func (m *mockDeviceStore) ListByUser(ctx context.Context, userID string) ([]domain.Device, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Device), args.Error(1)
}

// mockPushSender signals done after every Push so tests can wait on the
// background notification goroutine.
type mockPushSender struct {
	mock.Mock
	done chan struct{}
}

func (m *mockPushSender) Push(ctx context.Context, endpointARN, title, body string, data map[string]string) error {
	err := m.Called(ctx, endpointARN, title, body, data).Error(0)
	if m.done != nil {
		m.done <- struct{}{}
	}
	return err
}

func newTestService(ps *mockPostStore, us *mockUserStore, ds *mockDeviceStore, push *mockPushSender) Service {
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_push_sent_total"})
	return NewService(ps, us, ds, push, posthog.Nop(), zerolog.Nop(), counter)
}

// --- posts ---

func TestCreatePost_ReturnsHydratedPost(t *testing.T) {
	ps := &mockPostStore{}
	ps.On("Put", mock.Anything, mock.AnythingOfType("*domain.Post")).Return(nil)
	ps.On("Get", mock.Anything, mock.Anything, "u1").Return(&domain.Post{ID: "p1", UserID: "u1", Author: &domain.User{Username: "alice"}}, nil)

	svc := newTestService(ps, &mockUserStore{}, &mockDeviceStore{}, &mockPushSender{})
	p, err := svc.CreatePost(context.Background(), "u1", domain.CreatePostRequest{Body: "great smoke"})

	require.NoError(t, err)
	require.NotNil(t, p.Author)
	assert.Equal(t, "alice", p.Author.Username)
	ps.AssertExpectations(t)
}

func TestDeletePost_NotOwnerNotAdmin(t *testing.T) {
	ps := &mockPostStore{}
	ps.On("Get", mock.Anything, "p1", "u2").Return(&domain.Post{ID: "p1", UserID: "u1"}, nil)

	svc := newTestService(ps, &mockUserStore{}, &mockDeviceStore{}, &mockPushSender{})
	err := svc.DeletePost(context.Background(), "u2", domain.RoleUser, "p1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	ps.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
}

func TestDeletePost_AdminOverride(t *testing.T) {
	ps := &mockPostStore{}
	ps.On("Get", mock.Anything, "p1", "admin1").Return(&domain.Post{ID: "p1", UserID: "u1"}, nil)
	ps.On("SoftDelete", mock.Anything, "p1").Return(nil)

	svc := newTestService(ps, &mockUserStore{}, &mockDeviceStore{}, &mockPushSender{})
	require.NoError(t, svc.DeletePost(context.Background(), "admin1", domain.RoleAdmin, "p1"))
	ps.AssertExpectations(t)
}

func TestHome_ClampsLimit(t *testing.T) {
	ps := &mockPostStore{}
	ps.On("HomeFeed", mock.Anything, "u1", (*domain.FeedCursor)(nil), 20).Return([]domain.Post{}, nil)

	svc := newTestService(ps, &mockUserStore{}, &mockDeviceStore{}, &mockPushSender{})
	_, err := svc.Home(context.Background(), "u1", nil, 500)

	require.NoError(t, err)
	ps.AssertExpectations(t)
}

// --- likes ---

func TestLike_RepeatIsIdempotent(t *testing.T) {
	ps := &mockPostStore{}
	ps.On("Like", mock.Anything, "p1", "u1").Return(false, nil)

	svc := newTestService(ps, &mockUserStore{}, &mockDeviceStore{}, &mockPushSender{})
	require.NoError(t, svc.Like(context.Background(), "u1", "p1"))
	ps.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestLike_OwnPostSkipsNotification(t *testing.T) {
	ps := &mockPostStore{}
	ps.On("Like", mock.Anything, "p1", "u1").Return(true, nil)
	ps.On("Get", mock.Anything, "p1", "u1").Return(&domain.Post{ID: "p1", UserID: "u1"}, nil)

	us := &mockUserStore{}
	svc := newTestService(ps, us, &mockDeviceStore{}, &mockPushSender{})
	require.NoError(t, svc.Like(context.Background(), "u1", "p1"))
	us.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestLike_FreshLikeNotifiesOwnerDevices(t *testing.T) {
	ps := &mockPostStore{}
	ps.On("Like", mock.Anything, "p1", "u2").Return(true, nil)
	ps.On("Get", mock.Anything, "p1", "u2").Return(&domain.Post{ID: "p1", UserID: "u1"}, nil)

	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u2").Return(&domain.User{UserID: "u2", Username: "bob", DisplayName: "Bob"}, nil)

	arn := "arn:aws:sns:endpoint/1"
	ds := &mockDeviceStore{}
	ds.On("ListByUser", mock.Anything, "u1").Return([]domain.Device{
		{DeviceID: "d1", PushEndpoint: &arn},
		{DeviceID: "d2"}, // no push registration, skipped
	}, nil)

	push := &mockPushSender{done: make(chan struct{}, 1)}
	push.On("Push", mock.Anything, arn, "Inked Draw", "Bob liked your post", mock.Anything).Return(nil)

	svc := newTestService(ps, us, ds, push)
	require.NoError(t, svc.Like(context.Background(), "u2", "p1"))

	select {
	case <-push.done:
	case <-time.After(2 * time.Second):
		t.Fatal("push never sent")
	}
	push.AssertNumberOfCalls(t, "Push", 1)
}

func TestLike_NoPushSenderConfigured(t *testing.T) {
	ps := &mockPostStore{}
	ps.On("Like", mock.Anything, "p1", "u2").Return(true, nil)
	ps.On("Get", mock.Anything, "p1", "u2").Return(&domain.Post{ID: "p1", UserID: "u1"}, nil)

	us := &mockUserStore{}
	ds := &mockDeviceStore{}
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_push_sent_unconfigured_total"})
	svc := NewService(ps, us, ds, nil, posthog.Nop(), zerolog.Nop(), counter)

	require.NoError(t, svc.Like(context.Background(), "u2", "p1"))

	// notification is skipped entirely, nothing dispatched in the background
	us.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	ds.AssertNotCalled(t, "ListByUser", mock.Anything, mock.Anything)
}

// --- comments ---

func TestComment_PostMissing(t *testing.T) {
	ps := &mockPostStore{}
	ps.On("Get", mock.Anything, "ghost", "u1").Return(nil, domain.ErrNotFound)

	svc := newTestService(ps, &mockUserStore{}, &mockDeviceStore{}, &mockPushSender{})
	_, err := svc.Comment(context.Background(), "u1", "ghost", domain.CreateCommentRequest{Body: "nice"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDeleteComment_OwnerAllowed(t *testing.T) {
	ps := &mockPostStore{}
	ps.On("GetComment", mock.Anything, "c1").Return(&domain.Comment{ID: "c1", UserID: "u1"}, nil)
	ps.On("SoftDeleteComment", mock.Anything, "c1").Return(nil)

	svc := newTestService(ps, &mockUserStore{}, &mockDeviceStore{}, &mockPushSender{})
	require.NoError(t, svc.DeleteComment(context.Background(), "u1", domain.RoleUser, "c1"))
	ps.AssertExpectations(t)
}

func TestDeleteComment_StrangerForbidden(t *testing.T) {
	ps := &mockPostStore{}
	ps.On("GetComment", mock.Anything, "c1").Return(&domain.Comment{ID: "c1", UserID: "u1"}, nil)

	svc := newTestService(ps, &mockUserStore{}, &mockDeviceStore{}, &mockPushSender{})
	err := svc.DeleteComment(context.Background(), "u2", domain.RoleUser, "c1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}
