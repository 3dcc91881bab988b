package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/inkeddraw/backend/internal/domain"
)

const shopColumns = `id, name, address, city, latitude, longitude, website, phone,
	specialties, created_at, updated_at`

// ShopRepo provides typed Postgres operations for the shops table.
type ShopRepo struct {
	db *sql.DB
}

func NewShopRepo(db *sql.DB) *ShopRepo { return &ShopRepo{db: db} }

func (r *ShopRepo) Put(ctx context.Context, s *domain.Shop) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shops (`+shopColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, s.ID, s.Name, s.Address, s.City, s.Latitude, s.Longitude, s.Website,
		s.Phone, pq.Array(s.Specialties), s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert shop: %w", err)
	}
	return nil
}

func (r *ShopRepo) Get(ctx context.Context, id string) (*domain.Shop, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+shopColumns+` FROM shops WHERE id = $1`, id)
	return scanShop(row)
}

func (r *ShopRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	set, args, err := buildSetClause(updates, 2)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE shops SET "+set+" WHERE id = $1",
		append([]interface{}{id}, args...)...)
	if err != nil {
		return fmt.Errorf("update shop: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ShopRepo) HardDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shops WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Nearby runs the Haversine great-circle distance in SQL (6371 km Earth
// radius), filters by radius and orders closest first.
func (r *ShopRepo) Nearby(ctx context.Context, q domain.NearbyQuery) ([]domain.NearbyShop, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+shopColumns+`, distance_km FROM (
			SELECT *, 6371 * 2 * asin(sqrt(
				pow(sin(radians(latitude - $1) / 2), 2) +
				cos(radians($1)) * cos(radians(latitude)) *
				pow(sin(radians(longitude - $2) / 2), 2)
			)) AS distance_km
			FROM shops
		) s
		WHERE distance_km <= $3
		ORDER BY distance_km
		LIMIT $4
	`, q.Latitude, q.Longitude, q.RadiusKm, q.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shops []domain.NearbyShop
	for rows.Next() {
		var ns domain.NearbyShop
		if err := rows.Scan(&ns.ID, &ns.Name, &ns.Address, &ns.City, &ns.Latitude,
			&ns.Longitude, &ns.Website, &ns.Phone, pq.Array(&ns.Specialties),
			&ns.CreatedAt, &ns.UpdatedAt, &ns.DistanceKm); err != nil {
			return nil, err
		}
		shops = append(shops, ns)
	}
	return shops, rows.Err()
}

func scanShop(row rowScanner) (*domain.Shop, error) {
	var s domain.Shop
	err := row.Scan(&s.ID, &s.Name, &s.Address, &s.City, &s.Latitude, &s.Longitude,
		&s.Website, &s.Phone, pq.Array(&s.Specialties), &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapRowErr(err)
	}
	return &s, nil
}
