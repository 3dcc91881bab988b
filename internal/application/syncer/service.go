package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkeddraw/backend/internal/domain"
)

// Service implements the server half of the mobile client's offline sync
// protocol: pull returns everything that changed since the client checkpoint,
// push applies the client's local changes under the conflict policy.
type Service interface {
	Pull(ctx context.Context, userID string, lastPulledAt int64) (*domain.PullResponse, error)
	Push(ctx context.Context, userID string, req domain.PushRequest) (*domain.PushResult, error)
}

type syncStore interface {
	ChangesSince(ctx context.Context, userID string, sinceMs int64) (domain.ChangeSet, error)
	RowMeta(ctx context.Context, table, id string) (string, time.Time, error)
	ApplyUpsert(ctx context.Context, table string, raw json.RawMessage, userID string) error
	ApplyDelete(ctx context.Context, table, id, userID string) error
}

type service struct {
	repo syncStore
	log  zerolog.Logger
}

func NewService(repo syncStore, log zerolog.Logger) Service {
	return &service{repo: repo, log: log.With().Str("component", "sync").Logger()}
}

func (s *service) Pull(ctx context.Context, userID string, lastPulledAt int64) (*domain.PullResponse, error) {
	// the checkpoint is stamped before the read so a write racing the pull is
	// picked up again on the next one instead of being lost
	ts := time.Now().UnixMilli()
	changes, err := s.repo.ChangesSince(ctx, userID, lastPulledAt)
	if err != nil {
		return nil, err
	}
	return &domain.PullResponse{Changes: changes, Timestamp: ts}, nil
}

// Push applies the client change-set. Conflicts never fail the push: rows the
// pusher owns always win; a pushed row owned by someone else only wins when
// the client change is newer than the server row. Losing changes are dropped
// and counted.
func (s *service) Push(ctx context.Context, userID string, req domain.PushRequest) (*domain.PushResult, error) {
	// reject the whole batch before applying anything, a 400 after a partial
	// apply would leave the client checkpoint out of step with the server
	for table := range req.Changes {
		if !synced(table) {
			return nil, fmt.Errorf("table %s not synced: %w", table, domain.ErrBadRequest)
		}
	}

	res := &domain.PushResult{}
	for _, table := range domain.SyncTables {
		tc, ok := req.Changes[table]
		if ok && tc != nil {
			if err := s.pushTable(ctx, userID, table, tc, res); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

func (s *service) pushTable(ctx context.Context, userID, table string, tc *domain.TableChanges, res *domain.PushResult) error {
	records := make([]json.RawMessage, 0, len(tc.Created)+len(tc.Updated))
	records = append(records, tc.Created...)
	records = append(records, tc.Updated...)

	for _, raw := range records {
		var env domain.SyncRecord
		if err := json.Unmarshal(raw, &env); err != nil || env.ID == "" {
			return fmt.Errorf("malformed %s record: %w", table, domain.ErrBadRequest)
		}

		owner, serverUpdated, err := s.repo.RowMeta(ctx, table, env.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// new row
		case err != nil:
			return err
		case owner != userID:
			// someone else's row: the later write wins
			if env.UpdatedAt <= serverUpdated.UnixMilli() {
				s.log.Debug().Str("table", table).Str("id", env.ID).Msg("stale push dropped")
				res.Rejected++
				continue
			}
			// newer than the server copy, but ownership never transfers;
			// the upsert only touches content columns
		}

		if err := s.repo.ApplyUpsert(ctx, table, raw, userID); err != nil {
			return err
		}
		res.Applied++
	}

	for _, delID := range tc.Deleted {
		if err := s.repo.ApplyDelete(ctx, table, delID, userID); err != nil {
			return err
		}
		res.Applied++
	}
	return nil
}

func synced(table string) bool {
	for _, t := range domain.SyncTables {
		if t == table {
			return true
		}
	}
	return false
}
