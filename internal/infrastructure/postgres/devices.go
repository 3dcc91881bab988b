package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/inkeddraw/backend/internal/domain"
)

const deviceColumns = `device_id, device_uuid, user_id, push_token, push_endpoint,
	platform, enable, created_at, updated_at`

// DeviceRepo provides typed Postgres operations for the devices table.
type DeviceRepo struct {
	db *sql.DB
}

func NewDeviceRepo(db *sql.DB) *DeviceRepo { return &DeviceRepo{db: db} }

func (r *DeviceRepo) Put(ctx context.Context, d *domain.Device) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (`+deviceColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, d.DeviceID, d.UUID, d.UserID, d.PushToken, d.PushEndpoint,
		d.Platform, d.Enable, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	return nil
}

func (r *DeviceRepo) Get(ctx context.Context, deviceID string) (*domain.Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE device_id = $1 AND enable`, deviceID)
	return scanDevice(row)
}

func (r *DeviceRepo) GetByUUID(ctx context.Context, uuid string) (*domain.Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE device_uuid = $1 AND enable`, uuid)
	return scanDevice(row)
}

func (r *DeviceRepo) ListByUser(ctx context.Context, userID string) ([]domain.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE user_id = $1 AND enable ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []domain.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

func (r *DeviceRepo) Update(ctx context.Context, deviceID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	set, args, err := buildSetClause(updates, 2)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE devices SET "+set+" WHERE device_id = $1",
		append([]interface{}{deviceID}, args...)...)
	if err != nil {
		return fmt.Errorf("update device: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *DeviceRepo) SoftDelete(ctx context.Context, deviceID string) error {
	return r.Update(ctx, deviceID, map[string]interface{}{"enable": false})
}

func scanDevice(row rowScanner) (*domain.Device, error) {
	var d domain.Device
	err := row.Scan(&d.DeviceID, &d.UUID, &d.UserID, &d.PushToken, &d.PushEndpoint,
		&d.Platform, &d.Enable, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, mapRowErr(err)
	}
	return &d, nil
}
