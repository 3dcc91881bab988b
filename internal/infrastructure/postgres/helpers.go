package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/inkeddraw/backend/internal/domain"
)

// buildSetClause converts a field->value map into an ordered SQL SET clause
// and the matching positional args. Placeholders start at startIdx. Keys are
// sorted so generated SQL is deterministic (and testable with sqlmock).
func buildSetClause(updates map[string]interface{}, startIdx int) (string, []interface{}, error) {
	if len(updates) == 0 {
		return "", nil, fmt.Errorf("no fields to update")
	}
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))
	for i, k := range keys {
		parts = append(parts, fmt.Sprintf("%s = $%d", k, startIdx+i))
		v := updates[k]
		if ss, ok := v.([]string); ok {
			v = pq.Array(ss)
		}
		args = append(args, v)
	}
	return strings.Join(parts, ", "), args, nil
}

// mapRowErr translates sql.ErrNoRows into the domain sentinel.
func mapRowErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}
