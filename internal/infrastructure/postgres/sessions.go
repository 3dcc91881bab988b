package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/inkeddraw/backend/internal/domain"
)

const sessionColumns = `session_id, user_id, device_id, enable, refresh_token,
	refresh_expires_at, created_at, updated_at`

// SessionRepo provides typed Postgres operations for the sessions table.
type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

func (r *SessionRepo) Put(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, s.SessionID, s.UserID, s.DeviceID, s.Enable, s.RefreshToken,
		s.RefreshExpiresAt, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE session_id = $1 AND enable`, sessionID)
	return scanSession(row)
}

func (r *SessionRepo) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE refresh_token = $1 AND enable`, token)
	return scanSession(row)
}

// RotateRefreshToken replaces the refresh token in place. The old token stops
// working the moment this commits.
func (r *SessionRepo) RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET refresh_token = $2, refresh_expires_at = $3, updated_at = $4
		WHERE session_id = $1 AND enable
	`, sessionID, newToken, newExpiry, time.Now().UTC())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) Disable(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET enable = FALSE, updated_at = $2 WHERE session_id = $1`,
		sessionID, time.Now().UTC())
	return err
}

func (r *SessionRepo) SoftDeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET enable = FALSE, updated_at = $2 WHERE user_id = $1`,
		userID, time.Now().UTC())
	return err
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(&s.SessionID, &s.UserID, &s.DeviceID, &s.Enable,
		&s.RefreshToken, &s.RefreshExpiresAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapRowErr(err)
	}
	return &s, nil
}
