package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockExpirer struct{ mock.Mock }

func (m *mockExpirer) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockRefresher struct{ mock.Mock }

func (m *mockRefresher) RefreshAggregates(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestRunner_StartAndStop(t *testing.T) {
	r := NewRunner(&mockExpirer{}, &mockRefresher{}, zerolog.Nop())

	require.NoError(t, r.Start())
	r.Stop()
}

func TestExpireVerifications_SweepsPending(t *testing.T) {
	expirer := &mockExpirer{}
	expirer.On("ExpirePending", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(3), nil)

	r := NewRunner(expirer, &mockRefresher{}, zerolog.Nop())
	r.expireVerifications()

	expirer.AssertExpectations(t)
}

func TestExpireVerifications_SweepErrorIsNotFatal(t *testing.T) {
	expirer := &mockExpirer{}
	expirer.On("ExpirePending", mock.Anything, mock.Anything).Return(int64(0), assert.AnError)

	r := NewRunner(expirer, &mockRefresher{}, zerolog.Nop())
	r.expireVerifications()

	expirer.AssertExpectations(t)
}

func TestRefreshRatings(t *testing.T) {
	refresher := &mockRefresher{}
	refresher.On("RefreshAggregates", mock.Anything).Return(int64(12), nil)

	r := NewRunner(&mockExpirer{}, refresher, zerolog.Nop())
	r.refreshRatings()

	refresher.AssertExpectations(t)
}
