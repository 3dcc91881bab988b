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

func newProductMock(t *testing.T) (*ProductRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewProductRepo(db), mock
}

func productRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "kind", "name", "brand", "origin", "description", "attrs", "image_url",
		"avg_rating", "ratings_count", "created_at", "updated_at",
	}).AddRow("p1", "cigar", "Padron 1964", "Padron", "Nicaragua", "",
		[]byte(`{"wrapper":"maduro"}`), "", 4.5, 12, now, now)
}

func TestProductGet_DecodesAttrs(t *testing.T) {
	repo, mock := newProductMock(t)
	mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \$1`).
		WithArgs("p1").
		WillReturnRows(productRows())

	p, err := repo.Get(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, "Padron 1964", p.Name)
	assert.Equal(t, "maduro", p.Attrs["wrapper"])
}

func TestProductSearch_CountsBeforePaging(t *testing.T) {
	repo, mock := newProductMock(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM products`).
		WithArgs("cigar", "padron").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT .+ FROM products .+ ORDER BY avg_rating DESC`).
		WithArgs("cigar", "padron", 25, 0).
		WillReturnRows(productRows())

	products, total, err := repo.Search(context.Background(), domain.ProductQuery{
		Kind: "cigar", Search: "padron", Page: 1, PerPage: 25,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, products, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRate_UpsertsAndRefreshesInOneTx(t *testing.T) {
	repo, mock := newProductMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ratings .+ ON CONFLICT \(product_id, user_id\) DO UPDATE`).
		WithArgs("r1", "p1", "u1", 5, "superb", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE products SET`).
		WithArgs("p1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	now := time.Now().UTC()
	err := repo.Rate(context.Background(), &domain.Rating{
		ID: "r1", ProductID: "p1", UserID: "u1", Score: 5, Note: "superb",
		CreatedAt: now, UpdatedAt: now,
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRate_MissingProductRollsBack(t *testing.T) {
	repo, mock := newProductMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ratings`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE products SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Rate(context.Background(), &domain.Rating{ID: "r1", ProductID: "ghost", UserID: "u1", Score: 3})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshAggregates_ReportsRowsTouched(t *testing.T) {
	repo, mock := newProductMock(t)
	mock.ExpectExec(`UPDATE products p SET`).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.RefreshAggregates(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestRefreshAggregates_ZerosProductsWithoutLiveRatings(t *testing.T) {
	repo, mock := newProductMock(t)
	// the products side must survive an empty aggregate set (all ratings
	// tombstoned) so the sweep resets those rows to 0 instead of skipping them
	mock.ExpectExec(`UPDATE products p SET .+ FROM products p2 LEFT JOIN \( SELECT product_id.+\) agg ON agg\.product_id = p2\.id`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.RefreshAggregates(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchLabels_EmptyInputSkipsQuery(t *testing.T) {
	repo, mock := newProductMock(t)

	products, err := repo.MatchLabels(context.Background(), nil, 10)

	require.NoError(t, err)
	assert.Nil(t, products)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchLabels_OnePlaceholderPerLabel(t *testing.T) {
	repo, mock := newProductMock(t)
	mock.ExpectQuery(`SELECT .+ FROM products WHERE name ILIKE .+ OR brand ILIKE .+ OR name ILIKE .+ ORDER BY avg_rating DESC LIMIT \$3`).
		WithArgs("Padron", "Nicaragua", 10).
		WillReturnRows(productRows())

	products, err := repo.MatchLabels(context.Background(), []string{"Padron", "Nicaragua"}, 10)

	require.NoError(t, err)
	require.Len(t, products, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRating_NotFound(t *testing.T) {
	repo, mock := newProductMock(t)
	mock.ExpectQuery(`SELECT .+ FROM ratings`).
		WithArgs("p1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetRating(context.Background(), "p1", "u1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
