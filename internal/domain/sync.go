package domain

import "encoding/json"

// Tables that participate in client sync. All rows in these tables are
// user-owned, which is what makes the client-wins conflict rule safe.
var SyncTables = []string{"collections", "collection_items", "posts", "ratings"}

// TableChanges mirrors the WatermelonDB change-set shape for one table:
// full records for created/updated, bare ids for deleted.
type TableChanges struct {
	Created []json.RawMessage `json:"created"`
	Updated []json.RawMessage `json:"updated"`
	Deleted []string          `json:"deleted"`
}

// ChangeSet maps table name to its changes.
type ChangeSet map[string]*TableChanges

// PullResponse is the server's answer to a sync pull: every change since
// LastPulledAt plus the new checkpoint, both in epoch milliseconds.
type PullResponse struct {
	Changes   ChangeSet `json:"changes"`
	Timestamp int64     `json:"timestamp"`
}

// PushRequest carries local changes accumulated on the client since its
// last successful pull.
type PushRequest struct {
	Changes      ChangeSet `json:"changes"`
	LastPulledAt int64     `json:"last_pulled_at"`
}

// SyncRecord is the envelope common to every synced row. Concrete table
// payloads carry additional fields that are applied by the table's store.
type SyncRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	UpdatedAt int64  `json:"updated_at"` // epoch ms, client clock
}

// PushResult summarizes an applied push for logging and metrics.
type PushResult struct {
	Applied  int `json:"applied"`
	Rejected int `json:"rejected"` // stale rows dropped by conflict resolution
}
