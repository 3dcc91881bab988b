package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/inkeddraw/backend/internal/domain"
)

const userColumns = `user_id, username, email, password_hash, role, display_name, bio,
	avatar_url, preferences, city, latitude, longitude, private, age_verified,
	birthday, enable, deleted_at, created_at, updated_at`

// UserRepo provides typed Postgres operations for the users table.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Put(ctx context.Context, u *domain.User) error {
	var birthday interface{}
	if !u.Birthday.IsZero() {
		birthday = u.Birthday
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`, u.UserID, u.Username, u.Email, u.PasswordHash, u.Role, u.DisplayName, u.Bio,
		u.AvatarURL, pq.Array(u.Preferences), u.City, u.Latitude, u.Longitude,
		u.Private, u.AgeVerified, birthday, u.Enable, u.DeletedAt, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	return r.getBy(ctx, "user_id", userID)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *UserRepo) getBy(ctx context.Context, column, value string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = $1 AND deleted_at IS NULL`, value)
	return scanUser(row)
}

func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	set, args, err := buildSetClause(updates, 2)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET "+set+" WHERE user_id = $1 AND deleted_at IS NULL",
		append([]interface{}{userID}, args...)...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepo) SoftDelete(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	return r.Update(ctx, userID, map[string]interface{}{"enable": false, "deleted_at": now})
}

// List returns a page of enabled users plus the total count for pagination.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM users WHERE enable AND deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE enable AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u        domain.User
		birthday sql.NullTime
	)
	err := row.Scan(&u.UserID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.DisplayName, &u.Bio, &u.AvatarURL, pq.Array(&u.Preferences), &u.City,
		&u.Latitude, &u.Longitude, &u.Private, &u.AgeVerified, &birthday,
		&u.Enable, &u.DeletedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapRowErr(err)
	}
	if birthday.Valid {
		u.Birthday = birthday.Time
	}
	return &u, nil
}
