package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkeddraw/backend/internal/domain"
)

func newMock(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepo(db), mock
}

func userRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"user_id", "username", "email", "password_hash", "role", "display_name", "bio",
		"avatar_url", "preferences", "city", "latitude", "longitude", "private",
		"age_verified", "birthday", "enable", "deleted_at", "created_at", "updated_at",
	}).AddRow("u1", "alice", "alice@example.com", "hash", "user", "Alice", "",
		"", []byte("{cigar,wine}"), "Austin", nil, nil, false,
		true, now.AddDate(-30, 0, 0), true, nil, now, now)
}

func TestUserGet(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE user_id = \$1 AND deleted_at IS NULL`).
		WithArgs("u1").
		WillReturnRows(userRows())

	u, err := repo.Get(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, []string{"cigar", "wine"}, u.Preferences)
	assert.True(t, u.AgeVerified)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGet_NotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM users`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err := repo.Get(context.Background(), "ghost")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUserUpdate_DeterministicSetClause(t *testing.T) {
	repo, mock := newMock(t)
	// keys sorted: bio, city, updated_at
	mock.ExpectExec(`UPDATE users SET bio = \$2, city = \$3, updated_at = \$4 WHERE user_id = \$1 AND deleted_at IS NULL`).
		WithArgs("u1", "hi", "Austin", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "u1", map[string]interface{}{
		"bio":  "hi",
		"city": "Austin",
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdate_NoRowsIsNotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(`UPDATE users SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), "ghost", map[string]interface{}{"bio": "x"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUserSoftDelete(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(`UPDATE users SET deleted_at = \$2, enable = \$3, updated_at = \$4`).
		WithArgs("u1", sqlmock.AnyArg(), false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SoftDelete(context.Background(), "u1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserList_ReturnsTotal(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectQuery(`SELECT .+ FROM users`).
		WithArgs(10, 0).
		WillReturnRows(userRows())

	users, total, err := repo.List(context.Background(), 10, 0)

	require.NoError(t, err)
	assert.Equal(t, 42, total)
	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0].UserID)
}
