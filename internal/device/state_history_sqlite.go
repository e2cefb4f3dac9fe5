package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// SQLiteStateHistoryRepository persists state snapshots in the
// state_history table, one JSON-encoded State per row. The schema lives
// in the embedded migrations; this type assumes it is already applied.
type SQLiteStateHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteStateHistoryRepository wraps an open SQLite handle.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *SQLiteStateHistoryRepository: Ready repository
func NewSQLiteStateHistoryRepository(db *sql.DB) *SQLiteStateHistoryRepository {
	return &SQLiteStateHistoryRepository{db: db}
}

// RecordStateChange appends one snapshot row. An empty source defaults to
// the command source, which is what nearly every caller means.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Device identifier
//   - state: State snapshot to persist
//   - source: Origin of the change (command, status)
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteStateHistoryRepository) RecordStateChange(ctx context.Context, deviceID string, state State, source string) error {
	if deviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if source == "" {
		source = StateHistorySourceCommand
	}

	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO state_history (device_id, state, source) VALUES (?, ?, ?)",
		deviceID, string(encoded), source,
	); err != nil {
		return fmt.Errorf("inserting state history: %w", err)
	}
	return nil
}

// GetHistory returns a device's recent snapshots, newest first. The limit
// defaults to defaultHistoryLimit and is capped at maxHistoryLimit.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Device identifier
//   - limit: Maximum entries to return
//
// Returns:
//   - []StateHistoryEntry: Entries ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (r *SQLiteStateHistoryRepository) GetHistory(ctx context.Context, deviceID string, limit int) ([]StateHistoryEntry, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device id is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, state, source, created_at
		 FROM state_history
		 WHERE device_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		deviceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	entries := make([]StateHistoryEntry, 0, limit)
	for rows.Next() {
		entry, err := scanHistoryRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history: %w", err)
	}
	return entries, nil
}

// PruneHistory deletes entries older than the retention window and
// reports how many rows went.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - olderThan: Retention window; entries older than now-olderThan go
//
// Returns:
//   - int64: Rows deleted
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteStateHistoryRepository) PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM state_history WHERE created_at < ?", cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting state history: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return deleted, nil
}

// scanHistoryRow reads one row, decoding the state JSON and the stored
// timestamp.
func scanHistoryRow(rows *sql.Rows) (StateHistoryEntry, error) {
	var entry StateHistoryEntry
	var encoded, createdAt string

	if err := rows.Scan(&entry.ID, &entry.DeviceID, &encoded, &entry.Source, &createdAt); err != nil {
		return entry, fmt.Errorf("scanning state history: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &entry.State); err != nil {
		return entry, fmt.Errorf("unmarshalling state: %w", err)
	}

	ts, err := parseHistoryTimestamp(createdAt)
	if err != nil {
		return entry, err
	}
	entry.CreatedAt = ts
	return entry, nil
}

// parseHistoryTimestamp handles both RFC3339 strings written by this code
// and SQLite's CURRENT_TIMESTAMP default format.
func parseHistoryTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	ts, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return ts, nil
	}
	if fallback, ferr := time.Parse("2006-01-02T15:04:05Z", value); ferr == nil {
		return fallback, nil
	}
	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}
