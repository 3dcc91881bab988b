package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/inkeddraw/backend/internal/domain"
)

type mockSyncStore struct{ mock.Mock }

func (m *mockSyncStore) ChangesSince(ctx context.Context, userID string, sinceMs int64) (domain.ChangeSet, error) {
	args := m.Called(ctx, userID, sinceMs)
	if cs, _ := args.Get(0).(domain.ChangeSet); cs != nil {
		return cs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSyncStore) RowMeta(ctx context.Context, table, id string) (string, time.Time, error) {
	args := m.Called(ctx, table, id)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}
func (m *mockSyncStore) ApplyUpsert(ctx context.Context, table string, raw json.RawMessage, userID string) error {
	return m.Called(ctx, table, raw, userID).Error(0)
}
func (m *mockSyncStore) ApplyDelete(ctx context.Context, table, id, userID string) error {
	return m.Called(ctx, table, id, userID).Error(0)
}

func record(id string, updatedMs int64) json.RawMessage {
	raw, _ := json.Marshal(map[string]interface{}{
		"id":         id,
		"updated_at": updatedMs,
	})
	return raw
}

// --- Pull ---

func TestPull_TimestampPrecedesRead(t *testing.T) {
	repo := &mockSyncStore{}
	repo.On("ChangesSince", mock.Anything, "u1", int64(0)).Return(domain.ChangeSet{}, nil)

	before := time.Now().UnixMilli()
	resp, err := NewService(repo, zerolog.Nop()).Pull(context.Background(), "u1", 0)
	after := time.Now().UnixMilli()

	require.NoError(t, err)
	assert.GreaterOrEqual(t, resp.Timestamp, before)
	assert.LessOrEqual(t, resp.Timestamp, after)
}

// --- Push ---

func TestPush_UnknownTable(t *testing.T) {
	repo := &mockSyncStore{}
	svc := NewService(repo, zerolog.Nop())

	_, err := svc.Push(context.Background(), "u1", domain.PushRequest{
		Changes: domain.ChangeSet{"users": {}},
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestPush_UnknownTableRejectsWholeBatch(t *testing.T) {
	repo := &mockSyncStore{}
	svc := NewService(repo, zerolog.Nop())

	// the valid collections change must not be applied when the same batch
	// names a table outside the sync whitelist
	_, err := svc.Push(context.Background(), "u1", domain.PushRequest{
		Changes: domain.ChangeSet{
			"collections": {Created: []json.RawMessage{record("c1", 100)}},
			"users":       {},
		},
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	repo.AssertNotCalled(t, "RowMeta", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "ApplyUpsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPush_MalformedRecord(t *testing.T) {
	repo := &mockSyncStore{}
	svc := NewService(repo, zerolog.Nop())

	_, err := svc.Push(context.Background(), "u1", domain.PushRequest{
		Changes: domain.ChangeSet{"posts": {Created: []json.RawMessage{[]byte(`{"no_id":true}`)}}},
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestPush_NewRowApplied(t *testing.T) {
	repo := &mockSyncStore{}
	repo.On("RowMeta", mock.Anything, "posts", "p1").Return("", time.Time{}, domain.ErrNotFound)
	repo.On("ApplyUpsert", mock.Anything, "posts", mock.Anything, "u1").Return(nil)

	svc := NewService(repo, zerolog.Nop())
	res, err := svc.Push(context.Background(), "u1", domain.PushRequest{
		Changes: domain.ChangeSet{"posts": {Created: []json.RawMessage{record("p1", 100)}}},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 0, res.Rejected)
	repo.AssertExpectations(t)
}

func TestPush_OwnRowAlwaysWins(t *testing.T) {
	// server copy is newer, but the pusher owns the row
	serverTime := time.Now()
	repo := &mockSyncStore{}
	repo.On("RowMeta", mock.Anything, "collections", "c1").Return("u1", serverTime, nil)
	repo.On("ApplyUpsert", mock.Anything, "collections", mock.Anything, "u1").Return(nil)

	svc := NewService(repo, zerolog.Nop())
	res, err := svc.Push(context.Background(), "u1", domain.PushRequest{
		Changes: domain.ChangeSet{"collections": {Updated: []json.RawMessage{record("c1", serverTime.UnixMilli() - 5000)}}},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 0, res.Rejected)
}

func TestPush_StaleForeignRowDropped(t *testing.T) {
	serverTime := time.Now()
	repo := &mockSyncStore{}
	repo.On("RowMeta", mock.Anything, "posts", "p1").Return("other-user", serverTime, nil)

	svc := NewService(repo, zerolog.Nop())
	res, err := svc.Push(context.Background(), "u1", domain.PushRequest{
		Changes: domain.ChangeSet{"posts": {Updated: []json.RawMessage{record("p1", serverTime.UnixMilli() - 1)}}},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, res.Applied)
	assert.Equal(t, 1, res.Rejected)
	repo.AssertNotCalled(t, "ApplyUpsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPush_NewerForeignRowApplied(t *testing.T) {
	serverTime := time.Now()
	repo := &mockSyncStore{}
	repo.On("RowMeta", mock.Anything, "posts", "p1").Return("other-user", serverTime, nil)
	repo.On("ApplyUpsert", mock.Anything, "posts", mock.Anything, "u1").Return(nil)

	svc := NewService(repo, zerolog.Nop())
	res, err := svc.Push(context.Background(), "u1", domain.PushRequest{
		Changes: domain.ChangeSet{"posts": {Updated: []json.RawMessage{record("p1", serverTime.UnixMilli() + 1000)}}},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 0, res.Rejected)
}

func TestPush_DeletesCounted(t *testing.T) {
	repo := &mockSyncStore{}
	repo.On("ApplyDelete", mock.Anything, "ratings", "r1", "u1").Return(nil)
	repo.On("ApplyDelete", mock.Anything, "ratings", "r2", "u1").Return(nil)

	svc := NewService(repo, zerolog.Nop())
	res, err := svc.Push(context.Background(), "u1", domain.PushRequest{
		Changes: domain.ChangeSet{"ratings": {Deleted: []string{"r1", "r2"}}},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Applied)
	repo.AssertExpectations(t)
}

func TestPush_TablesAppliedInOrder(t *testing.T) {
	var order []string
	repo := &mockSyncStore{}
	repo.On("RowMeta", mock.Anything, mock.Anything, mock.Anything).Return("", time.Time{}, domain.ErrNotFound)
	repo.On("ApplyUpsert", mock.Anything, mock.Anything, mock.Anything, "u1").
		Run(func(args mock.Arguments) { order = append(order, args.String(1)) }).
		Return(nil)

	svc := NewService(repo, zerolog.Nop())
	_, err := svc.Push(context.Background(), "u1", domain.PushRequest{
		Changes: domain.ChangeSet{
			// items reference collections; the service must apply parents first
			// regardless of map iteration order
			"collection_items": {Created: []json.RawMessage{record("i1", 1)}},
			"collections":      {Created: []json.RawMessage{record("c1", 1)}},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"collections", "collection_items"}, order)
}
