package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order on startup. Each statement must be
// idempotent (IF NOT EXISTS) so restarts are safe without a version table.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id       TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'user',
		display_name  TEXT NOT NULL DEFAULT '',
		bio           TEXT NOT NULL DEFAULT '',
		avatar_url    TEXT NOT NULL DEFAULT '',
		preferences   TEXT[] NOT NULL DEFAULT '{}',
		city          TEXT NOT NULL DEFAULT '',
		latitude      DOUBLE PRECISION,
		longitude     DOUBLE PRECISION,
		private       BOOLEAN NOT NULL DEFAULT FALSE,
		age_verified  BOOLEAN NOT NULL DEFAULT FALSE,
		birthday      DATE,
		enable        BOOLEAN NOT NULL DEFAULT TRUE,
		deleted_at    TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		session_id         TEXT PRIMARY KEY,
		user_id            TEXT NOT NULL REFERENCES users(user_id),
		device_id          TEXT NOT NULL,
		enable             BOOLEAN NOT NULL DEFAULT TRUE,
		refresh_token      TEXT NOT NULL,
		refresh_expires_at BIGINT NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS sessions_refresh_token_idx ON sessions (refresh_token)`,
	`CREATE INDEX IF NOT EXISTS sessions_user_idx ON sessions (user_id)`,

	`CREATE TABLE IF NOT EXISTS devices (
		device_id     TEXT PRIMARY KEY,
		device_uuid   TEXT NOT NULL UNIQUE,
		user_id       TEXT NOT NULL REFERENCES users(user_id),
		push_token    TEXT,
		push_endpoint TEXT,
		platform      TEXT NOT NULL DEFAULT '',
		enable        BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS follows (
		follower_id TEXT NOT NULL REFERENCES users(user_id),
		followee_id TEXT NOT NULL REFERENCES users(user_id),
		created_at  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (follower_id, followee_id)
	)`,

	`CREATE TABLE IF NOT EXISTS age_verifications (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL UNIQUE REFERENCES users(user_id),
		session_id    TEXT NOT NULL,
		session_url   TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL DEFAULT 'pending',
		attempts      INTEGER NOT NULL DEFAULT 0,
		decision_code INTEGER,
		reason        TEXT NOT NULL DEFAULT '',
		expires_at    TIMESTAMPTZ NOT NULL,
		decided_at    TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS age_verifications_session_idx ON age_verifications (session_id)`,
	`CREATE INDEX IF NOT EXISTS age_verifications_status_idx ON age_verifications (status, expires_at)`,

	`CREATE TABLE IF NOT EXISTS collections (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL REFERENCES users(user_id),
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		visibility  TEXT NOT NULL DEFAULT 'private',
		deleted_at  TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS collections_user_idx ON collections (user_id, updated_at)`,

	`CREATE TABLE IF NOT EXISTS collection_items (
		id            TEXT PRIMARY KEY,
		collection_id TEXT NOT NULL REFERENCES collections(id),
		user_id       TEXT NOT NULL REFERENCES users(user_id),
		kind          TEXT NOT NULL,
		product_id    TEXT,
		name          TEXT NOT NULL,
		rating        INTEGER,
		price         NUMERIC,
		currency      TEXT NOT NULL DEFAULT '',
		notes         TEXT NOT NULL DEFAULT '',
		tags          TEXT[] NOT NULL DEFAULT '{}',
		acquired_at   DATE,
		deleted_at    TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS collection_items_collection_idx ON collection_items (collection_id, updated_at)`,
	`CREATE INDEX IF NOT EXISTS collection_items_user_idx ON collection_items (user_id, updated_at)`,

	`CREATE TABLE IF NOT EXISTS products (
		id            TEXT PRIMARY KEY,
		kind          TEXT NOT NULL,
		name          TEXT NOT NULL,
		brand         TEXT NOT NULL,
		origin        TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL DEFAULT '',
		attrs         JSONB NOT NULL DEFAULT '{}',
		image_url     TEXT NOT NULL DEFAULT '',
		avg_rating    DOUBLE PRECISION NOT NULL DEFAULT 0,
		ratings_count INTEGER NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS products_kind_idx ON products (kind)`,
	`CREATE INDEX IF NOT EXISTS products_name_idx ON products (lower(name))`,

	`CREATE TABLE IF NOT EXISTS ratings (
		id         TEXT PRIMARY KEY,
		product_id TEXT NOT NULL REFERENCES products(id),
		user_id    TEXT NOT NULL REFERENCES users(user_id),
		score      INTEGER NOT NULL,
		note       TEXT NOT NULL DEFAULT '',
		deleted_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (product_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS ratings_user_idx ON ratings (user_id, updated_at)`,

	`CREATE TABLE IF NOT EXISTS posts (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(user_id),
		body       TEXT NOT NULL,
		image_url  TEXT NOT NULL DEFAULT '',
		product_id TEXT,
		kind       TEXT NOT NULL DEFAULT '',
		deleted_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS posts_user_idx ON posts (user_id, updated_at)`,
	`CREATE INDEX IF NOT EXISTS posts_feed_idx ON posts (created_at DESC, id DESC)`,

	`CREATE TABLE IF NOT EXISTS comments (
		id         TEXT PRIMARY KEY,
		post_id    TEXT NOT NULL REFERENCES posts(id),
		user_id    TEXT NOT NULL REFERENCES users(user_id),
		body       TEXT NOT NULL,
		deleted_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS comments_post_idx ON comments (post_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS likes (
		post_id    TEXT NOT NULL REFERENCES posts(id),
		user_id    TEXT NOT NULL REFERENCES users(user_id),
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (post_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS shops (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		address     TEXT NOT NULL,
		city        TEXT NOT NULL,
		latitude    DOUBLE PRECISION NOT NULL,
		longitude   DOUBLE PRECISION NOT NULL,
		website     TEXT NOT NULL DEFAULT '',
		phone       TEXT NOT NULL DEFAULT '',
		specialties TEXT[] NOT NULL DEFAULT '{}',
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS shops_city_idx ON shops (lower(city))`,
}

// Migrate applies all schema migrations in order.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
