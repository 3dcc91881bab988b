package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/inkeddraw/backend/internal/domain"
)

const verificationColumns = `id, user_id, session_id, session_url, status, attempts,
	decision_code, reason, expires_at, decided_at, created_at, updated_at`

// VerificationRepo provides typed Postgres operations for age_verifications.
type VerificationRepo struct {
	db *sql.DB
}

func NewVerificationRepo(db *sql.DB) *VerificationRepo { return &VerificationRepo{db: db} }

// Put upserts the user's single verification row. Restarting a rejected or
// expired verification reuses the row, replacing the vendor session.
func (r *VerificationRepo) Put(ctx context.Context, v *domain.AgeVerification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO age_verifications (`+verificationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (user_id) DO UPDATE SET
			session_id = EXCLUDED.session_id,
			session_url = EXCLUDED.session_url,
			status = EXCLUDED.status,
			attempts = EXCLUDED.attempts,
			decision_code = EXCLUDED.decision_code,
			reason = EXCLUDED.reason,
			expires_at = EXCLUDED.expires_at,
			decided_at = EXCLUDED.decided_at,
			updated_at = EXCLUDED.updated_at
	`, v.ID, v.UserID, v.SessionID, v.SessionURL, v.Status, v.Attempts,
		v.DecisionCode, v.Reason, v.ExpiresAt, v.DecidedAt, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert verification: %w", err)
	}
	return nil
}

func (r *VerificationRepo) GetByUser(ctx context.Context, userID string) (*domain.AgeVerification, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+verificationColumns+` FROM age_verifications WHERE user_id = $1`, userID)
	return scanVerification(row)
}

func (r *VerificationRepo) GetBySession(ctx context.Context, sessionID string) (*domain.AgeVerification, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+verificationColumns+` FROM age_verifications WHERE session_id = $1`, sessionID)
	return scanVerification(row)
}

func (r *VerificationRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	set, args, err := buildSetClause(updates, 2)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE age_verifications SET "+set+" WHERE id = $1",
		append([]interface{}{id}, args...)...)
	if err != nil {
		return fmt.Errorf("update verification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ExpirePending flips pending rows whose window lapsed before now.
// Returns how many rows were expired.
func (r *VerificationRepo) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE age_verifications
		SET status = $1, updated_at = $2
		WHERE status = $3 AND expires_at < $2
	`, domain.VerificationExpired, now.UTC(), domain.VerificationPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanVerification(row rowScanner) (*domain.AgeVerification, error) {
	var (
		v         domain.AgeVerification
		decidedAt sql.NullTime
	)
	err := row.Scan(&v.ID, &v.UserID, &v.SessionID, &v.SessionURL, &v.Status,
		&v.Attempts, &v.DecisionCode, &v.Reason, &v.ExpiresAt, &decidedAt,
		&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, mapRowErr(err)
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		v.DecidedAt = &t
	}
	return &v, nil
}
