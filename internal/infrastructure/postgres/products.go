package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/inkeddraw/backend/internal/domain"
)

const productColumns = `id, kind, name, brand, origin, description, attrs, image_url,
	avg_rating, ratings_count, created_at, updated_at`

// ProductRepo provides typed Postgres operations for the catalog and ratings.
type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) Put(ctx context.Context, p *domain.Product) error {
	attrs, err := json.Marshal(p.Attrs)
	if err != nil {
		return fmt.Errorf("marshal attrs: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, p.ID, p.Kind, p.Name, p.Brand, p.Origin, p.Description, attrs, p.ImageURL,
		p.AvgRating, p.RatingsCount, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepo) Get(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// Search filters the catalog by kind and a name/brand substring, paginated.
func (r *ProductRepo) Search(ctx context.Context, q domain.ProductQuery) ([]domain.Product, int, error) {
	where := `WHERE ($1 = '' OR kind = $1) AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR brand ILIKE '%' || $2 || '%')`

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM products `+where, q.Kind, q.Search).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (q.Page - 1) * q.PerPage
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+` FROM products `+where+`
		ORDER BY avg_rating DESC, name
		LIMIT $3 OFFSET $4
	`, q.Kind, q.Search, q.PerPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

func (r *ProductRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	if attrs, ok := updates["attrs"]; ok {
		b, err := json.Marshal(attrs)
		if err != nil {
			return fmt.Errorf("marshal attrs: %w", err)
		}
		updates["attrs"] = b
	}
	updates["updated_at"] = time.Now().UTC()
	set, args, err := buildSetClause(updates, 2)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET "+set+" WHERE id = $1",
		append([]interface{}{id}, args...)...)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepo) HardDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MatchLabels returns catalog products whose name or brand matches any of the
// given scanner labels, best-rated first.
func (r *ProductRepo) MatchLabels(ctx context.Context, labels []string, limit int) ([]domain.Product, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	// One ILIKE per label, OR-joined. Label counts are small (Vision caps
	// results), so the query stays short.
	query := `SELECT ` + productColumns + ` FROM products WHERE `
	args := make([]interface{}, 0, len(labels)+1)
	for i, l := range labels {
		if i > 0 {
			query += " OR "
		}
		query += fmt.Sprintf("name ILIKE '%%' || $%d || '%%' OR brand ILIKE '%%' || $%d || '%%'", i+1, i+1)
		args = append(args, l)
	}
	query += fmt.Sprintf(" ORDER BY avg_rating DESC LIMIT $%d", len(labels)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// --- ratings ---

// Rate upserts the user's rating and recomputes the product aggregate in the
// same transaction.
func (r *ProductRepo) Rate(ctx context.Context, rt *domain.Rating) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ratings (id, product_id, user_id, score, note, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (product_id, user_id) DO UPDATE SET
			score = EXCLUDED.score,
			note = EXCLUDED.note,
			deleted_at = NULL,
			updated_at = EXCLUDED.updated_at
	`, rt.ID, rt.ProductID, rt.UserID, rt.Score, rt.Note, rt.CreatedAt, rt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE products SET
			avg_rating = COALESCE((SELECT avg(score) FROM ratings WHERE product_id = $1 AND deleted_at IS NULL), 0),
			ratings_count = (SELECT count(*) FROM ratings WHERE product_id = $1 AND deleted_at IS NULL),
			updated_at = $2
		WHERE id = $1
	`, rt.ProductID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("refresh rating aggregate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit()
}

// RefreshAggregates recomputes avg_rating/ratings_count for every product.
// Ratings applied through sync pushes bypass Rate(), so a periodic sweep
// repairs the drift. Returns the number of product rows touched.
func (r *ProductRepo) RefreshAggregates(ctx context.Context) (int64, error) {
	// LEFT JOIN so a product whose last live rating was tombstoned (sync
	// deletes bypass Rate) falls back to zero instead of keeping stale values.
	res, err := r.db.ExecContext(ctx, `
		UPDATE products p SET
			avg_rating = COALESCE(agg.avg, 0),
			ratings_count = COALESCE(agg.cnt, 0)
		FROM products p2
		LEFT JOIN (
			SELECT product_id, avg(score) AS avg, count(*) AS cnt
			FROM ratings WHERE deleted_at IS NULL
			GROUP BY product_id
		) agg ON agg.product_id = p2.id
		WHERE p2.id = p.id
			AND (p.avg_rating IS DISTINCT FROM COALESCE(agg.avg, 0)
				OR p.ratings_count IS DISTINCT FROM COALESCE(agg.cnt, 0))
	`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ProductRepo) GetRating(ctx context.Context, productID, userID string) (*domain.Rating, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, product_id, user_id, score, note, deleted_at, created_at, updated_at
		FROM ratings
		WHERE product_id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, productID, userID)
	var rt domain.Rating
	err := row.Scan(&rt.ID, &rt.ProductID, &rt.UserID, &rt.Score, &rt.Note,
		&rt.DeletedAt, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		return nil, mapRowErr(err)
	}
	return &rt, nil
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p        domain.Product
		attrsRaw []byte
	)
	err := row.Scan(&p.ID, &p.Kind, &p.Name, &p.Brand, &p.Origin, &p.Description,
		&attrsRaw, &p.ImageURL, &p.AvgRating, &p.RatingsCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapRowErr(err)
	}
	if len(attrsRaw) > 0 {
		_ = json.Unmarshal(attrsRaw, &p.Attrs)
	}
	return &p, nil
}
