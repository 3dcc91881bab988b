package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/inkeddraw/backend/internal/domain"
)

const collectionColumns = `id, user_id, name, description, visibility, deleted_at, created_at, updated_at`

const itemColumns = `id, collection_id, user_id, kind, product_id, name, rating, price,
	currency, notes, tags, acquired_at, deleted_at, created_at, updated_at`

// CollectionRepo provides typed Postgres operations for collections and their items.
type CollectionRepo struct {
	db *sql.DB
}

func NewCollectionRepo(db *sql.DB) *CollectionRepo { return &CollectionRepo{db: db} }

func (r *CollectionRepo) Put(ctx context.Context, c *domain.Collection) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO collections (`+collectionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, c.ID, c.UserID, c.Name, c.Description, c.Visibility, c.DeletedAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert collection: %w", err)
	}
	return nil
}

func (r *CollectionRepo) Get(ctx context.Context, id string) (*domain.Collection, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT c.id, c.user_id, c.name, c.description, c.visibility, c.deleted_at,
			c.created_at, c.updated_at,
			(SELECT count(*) FROM collection_items i WHERE i.collection_id = c.id AND i.deleted_at IS NULL)
		FROM collections c
		WHERE c.id = $1 AND c.deleted_at IS NULL
	`, id)
	var c domain.Collection
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.Visibility,
		&c.DeletedAt, &c.CreatedAt, &c.UpdatedAt, &c.ItemCount)
	if err != nil {
		return nil, mapRowErr(err)
	}
	return &c, nil
}

func (r *CollectionRepo) ListByUser(ctx context.Context, userID string) ([]domain.Collection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.name, c.description, c.visibility, c.deleted_at,
			c.created_at, c.updated_at,
			(SELECT count(*) FROM collection_items i WHERE i.collection_id = c.id AND i.deleted_at IS NULL)
		FROM collections c
		WHERE c.user_id = $1 AND c.deleted_at IS NULL
		ORDER BY c.created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Collection
	for rows.Next() {
		var c domain.Collection
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.Visibility,
			&c.DeletedAt, &c.CreatedAt, &c.UpdatedAt, &c.ItemCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CollectionRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	set, args, err := buildSetClause(updates, 2)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE collections SET "+set+" WHERE id = $1 AND deleted_at IS NULL",
		append([]interface{}{id}, args...)...)
	if err != nil {
		return fmt.Errorf("update collection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SoftDelete tombstones the collection and every item in it, in one
// transaction so sync pulls never see a half-deleted collection.
func (r *CollectionRepo) SoftDelete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE collections SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, now)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE collection_items SET deleted_at = $2, updated_at = $2 WHERE collection_id = $1 AND deleted_at IS NULL`,
		id, now); err != nil {
		return err
	}
	return tx.Commit()
}

// --- items ---

func (r *CollectionRepo) PutItem(ctx context.Context, it *domain.CollectionItem) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO collection_items (`+itemColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, it.ID, it.CollectionID, it.UserID, it.Kind, it.ProductID, it.Name, it.Rating,
		it.Price, it.Currency, it.Notes, pq.Array(it.Tags), it.AcquiredAt,
		it.DeletedAt, it.CreatedAt, it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert collection item: %w", err)
	}
	return nil
}

func (r *CollectionRepo) GetItem(ctx context.Context, itemID string) (*domain.CollectionItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM collection_items WHERE id = $1 AND deleted_at IS NULL`, itemID)
	return scanItem(row)
}

func (r *CollectionRepo) ListItems(ctx context.Context, collectionID string, limit, offset int) ([]domain.CollectionItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM collection_items
		WHERE collection_id = $1 AND deleted_at IS NULL
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`, collectionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.CollectionItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (r *CollectionRepo) UpdateItem(ctx context.Context, itemID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	set, args, err := buildSetClause(updates, 2)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE collection_items SET "+set+" WHERE id = $1 AND deleted_at IS NULL",
		append([]interface{}{itemID}, args...)...)
	if err != nil {
		return fmt.Errorf("update collection item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CollectionRepo) SoftDeleteItem(ctx context.Context, itemID string) error {
	now := time.Now().UTC()
	return r.UpdateItem(ctx, itemID, map[string]interface{}{"deleted_at": now})
}

func scanItem(row rowScanner) (*domain.CollectionItem, error) {
	var (
		it         domain.CollectionItem
		acquiredAt sql.NullTime
	)
	err := row.Scan(&it.ID, &it.CollectionID, &it.UserID, &it.Kind, &it.ProductID,
		&it.Name, &it.Rating, &it.Price, &it.Currency, &it.Notes, pq.Array(&it.Tags),
		&acquiredAt, &it.DeletedAt, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, mapRowErr(err)
	}
	if acquiredAt.Valid {
		t := acquiredAt.Time
		it.AcquiredAt = &t
	}
	return &it, nil
}
