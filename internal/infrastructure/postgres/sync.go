package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/inkeddraw/backend/internal/domain"
)

// syncSelects produce one JSON object per row in the shape the mobile client
// stores locally: flat columns plus epoch-millisecond timestamps. $1 is the
// user, $2 the checkpoint (ms).
var syncSelects = map[string]string{
	"collections": `
		SELECT row_to_json(t) FROM (
			SELECT id, user_id, name, description, visibility,
				(extract(epoch FROM created_at)*1000)::bigint AS created_at,
				(extract(epoch FROM updated_at)*1000)::bigint AS updated_at
			FROM collections
			WHERE user_id = $1 AND deleted_at IS NULL
				AND updated_at > to_timestamp($2::double precision / 1000)
		) t`,
	"collection_items": `
		SELECT row_to_json(t) FROM (
			SELECT id, collection_id, user_id, kind, product_id, name, rating, price,
				currency, notes, tags, acquired_at,
				(extract(epoch FROM created_at)*1000)::bigint AS created_at,
				(extract(epoch FROM updated_at)*1000)::bigint AS updated_at
			FROM collection_items
			WHERE user_id = $1 AND deleted_at IS NULL
				AND updated_at > to_timestamp($2::double precision / 1000)
		) t`,
	"posts": `
		SELECT row_to_json(t) FROM (
			SELECT id, user_id, body, image_url, product_id, kind,
				(extract(epoch FROM created_at)*1000)::bigint AS created_at,
				(extract(epoch FROM updated_at)*1000)::bigint AS updated_at
			FROM posts
			WHERE user_id = $1 AND deleted_at IS NULL
				AND updated_at > to_timestamp($2::double precision / 1000)
		) t`,
	"ratings": `
		SELECT row_to_json(t) FROM (
			SELECT id, product_id, user_id, score, note,
				(extract(epoch FROM created_at)*1000)::bigint AS created_at,
				(extract(epoch FROM updated_at)*1000)::bigint AS updated_at
			FROM ratings
			WHERE user_id = $1 AND deleted_at IS NULL
				AND updated_at > to_timestamp($2::double precision / 1000)
		) t`,
}

// syncDeletes report tombstoned ids since the checkpoint.
var syncDeletes = map[string]string{
	"collections":      `SELECT id FROM collections WHERE user_id = $1 AND deleted_at IS NOT NULL AND updated_at > to_timestamp($2::double precision / 1000)`,
	"collection_items": `SELECT id FROM collection_items WHERE user_id = $1 AND deleted_at IS NOT NULL AND updated_at > to_timestamp($2::double precision / 1000)`,
	"posts":            `SELECT id FROM posts WHERE user_id = $1 AND deleted_at IS NOT NULL AND updated_at > to_timestamp($2::double precision / 1000)`,
	"ratings":          `SELECT id FROM ratings WHERE user_id = $1 AND deleted_at IS NOT NULL AND updated_at > to_timestamp($2::double precision / 1000)`,
}

// SyncRepo reads and applies WatermelonDB change-sets for user-owned tables.
type SyncRepo struct {
	db *sql.DB
}

func NewSyncRepo(db *sql.DB) *SyncRepo { return &SyncRepo{db: db} }

// ChangesSince collects the user's changed rows per table since the
// checkpoint. Rows created after the checkpoint land in Created, older rows
// in Updated, so the client applies them with the right semantics.
func (r *SyncRepo) ChangesSince(ctx context.Context, userID string, sinceMs int64) (domain.ChangeSet, error) {
	changes := make(domain.ChangeSet, len(domain.SyncTables))
	for _, table := range domain.SyncTables {
		tc := &domain.TableChanges{
			Created: []json.RawMessage{},
			Updated: []json.RawMessage{},
			Deleted: []string{},
		}

		rows, err := r.db.QueryContext(ctx, syncSelects[table], userID, sinceMs)
		if err != nil {
			return nil, fmt.Errorf("pull %s: %w", table, err)
		}
		for rows.Next() {
			var raw json.RawMessage
			if err := rows.Scan(&raw); err != nil {
				rows.Close()
				return nil, err
			}
			var env struct {
				CreatedAt int64 `json:"created_at"`
			}
			if err := json.Unmarshal(raw, &env); err != nil {
				rows.Close()
				return nil, err
			}
			if env.CreatedAt > sinceMs {
				tc.Created = append(tc.Created, raw)
			} else {
				tc.Updated = append(tc.Updated, raw)
			}
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}

		delRows, err := r.db.QueryContext(ctx, syncDeletes[table], userID, sinceMs)
		if err != nil {
			return nil, fmt.Errorf("pull deletes %s: %w", table, err)
		}
		for delRows.Next() {
			var id string
			if err := delRows.Scan(&id); err != nil {
				delRows.Close()
				return nil, err
			}
			tc.Deleted = append(tc.Deleted, id)
		}
		if err := delRows.Close(); err != nil {
			return nil, err
		}

		changes[table] = tc
	}
	return changes, nil
}

// RowMeta returns the owner and server updated_at of an existing synced row.
// domain.ErrNotFound means the row does not exist yet.
func (r *SyncRepo) RowMeta(ctx context.Context, table, id string) (string, time.Time, error) {
	if _, ok := syncSelects[table]; !ok {
		return "", time.Time{}, fmt.Errorf("table %s not synced: %w", table, domain.ErrBadRequest)
	}
	var (
		owner     string
		updatedAt time.Time
	)
	err := r.db.QueryRowContext(ctx,
		// table comes from the sync whitelist, never from client input.
		fmt.Sprintf(`SELECT user_id, updated_at FROM %s WHERE id = $1`, table), id,
	).Scan(&owner, &updatedAt)
	if err != nil {
		return "", time.Time{}, mapRowErr(err)
	}
	return owner, updatedAt, nil
}

// ApplyUpsert writes one pushed record. updated_at is re-stamped with the
// server clock so subsequent pulls on other devices pick the change up.
func (r *SyncRepo) ApplyUpsert(ctx context.Context, table string, raw json.RawMessage, userID string) error {
	now := time.Now().UTC()
	switch table {
	case "collections":
		var rec struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Description string `json:"description"`
			Visibility  string `json:"visibility"`
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode collection: %w", domain.ErrBadRequest)
		}
		if rec.Visibility == "" {
			rec.Visibility = "private"
		}
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO collections (id, user_id, name, description, visibility, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$6)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				visibility = EXCLUDED.visibility,
				deleted_at = NULL,
				updated_at = EXCLUDED.updated_at
		`, rec.ID, userID, rec.Name, rec.Description, rec.Visibility, now)
		return err

	case "collection_items":
		var rec struct {
			ID           string   `json:"id"`
			CollectionID string   `json:"collection_id"`
			Kind         string   `json:"kind"`
			ProductID    *string  `json:"product_id"`
			Name         string   `json:"name"`
			Rating       *int     `json:"rating"`
			Price        *float64 `json:"price"`
			Currency     string   `json:"currency"`
			Notes        string   `json:"notes"`
			Tags         []string `json:"tags"`
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode collection item: %w", domain.ErrBadRequest)
		}
		if !domain.ValidKind(rec.Kind) {
			return fmt.Errorf("invalid kind %q: %w", rec.Kind, domain.ErrBadRequest)
		}
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO collection_items (id, collection_id, user_id, kind, product_id, name, rating, price, currency, notes, tags, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)
			ON CONFLICT (id) DO UPDATE SET
				kind = EXCLUDED.kind,
				product_id = EXCLUDED.product_id,
				name = EXCLUDED.name,
				rating = EXCLUDED.rating,
				price = EXCLUDED.price,
				currency = EXCLUDED.currency,
				notes = EXCLUDED.notes,
				tags = EXCLUDED.tags,
				deleted_at = NULL,
				updated_at = EXCLUDED.updated_at
		`, rec.ID, rec.CollectionID, userID, rec.Kind, rec.ProductID, rec.Name,
			rec.Rating, rec.Price, rec.Currency, rec.Notes, pq.Array(rec.Tags), now)
		return err

	case "posts":
		var rec struct {
			ID        string  `json:"id"`
			Body      string  `json:"body"`
			ImageURL  string  `json:"image_url"`
			ProductID *string `json:"product_id"`
			Kind      string  `json:"kind"`
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode post: %w", domain.ErrBadRequest)
		}
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO posts (id, user_id, body, image_url, product_id, kind, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
			ON CONFLICT (id) DO UPDATE SET
				body = EXCLUDED.body,
				image_url = EXCLUDED.image_url,
				product_id = EXCLUDED.product_id,
				kind = EXCLUDED.kind,
				deleted_at = NULL,
				updated_at = EXCLUDED.updated_at
		`, rec.ID, userID, rec.Body, rec.ImageURL, rec.ProductID, rec.Kind, now)
		return err

	case "ratings":
		var rec struct {
			ID        string `json:"id"`
			ProductID string `json:"product_id"`
			Score     int    `json:"score"`
			Note      string `json:"note"`
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode rating: %w", domain.ErrBadRequest)
		}
		if rec.Score < 1 || rec.Score > 5 {
			return fmt.Errorf("score out of range: %w", domain.ErrBadRequest)
		}
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO ratings (id, product_id, user_id, score, note, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$6)
			ON CONFLICT (product_id, user_id) DO UPDATE SET
				score = EXCLUDED.score,
				note = EXCLUDED.note,
				deleted_at = NULL,
				updated_at = EXCLUDED.updated_at
		`, rec.ID, rec.ProductID, userID, rec.Score, rec.Note, now)
		return err

	default:
		return fmt.Errorf("table %s not synced: %w", table, domain.ErrBadRequest)
	}
}

// ApplyDelete tombstones one pushed delete, constrained to rows the pushing
// user owns. Deleting a row that is already gone is a no-op.
func (r *SyncRepo) ApplyDelete(ctx context.Context, table, id, userID string) error {
	if _, ok := syncSelects[table]; !ok {
		return fmt.Errorf("table %s not synced: %w", table, domain.ErrBadRequest)
	}
	_, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET deleted_at = $3, updated_at = $3 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`, table),
		id, userID, time.Now().UTC())
	return err
}
