package device

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// historyTestDB opens an in-memory SQLite database carrying just the
// state_history table, mirroring the embedded migration's schema.
func historyTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE state_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			state TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'command',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE INDEX idx_state_history_device ON state_history(device_id, created_at DESC);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}
	return db
}

// insertHistoryAt writes a row with an explicit timestamp, bypassing the
// repository so ordering tests control time exactly.
func insertHistoryAt(t *testing.T, db *sql.DB, deviceID, stateJSON, source string, createdAt time.Time) {
	t.Helper()

	if _, err := db.Exec(
		"INSERT INTO state_history (device_id, state, source, created_at) VALUES (?, ?, ?, ?)",
		deviceID, stateJSON, source, createdAt.UTC().Format(time.RFC3339),
	); err != nil {
		t.Fatalf("failed to insert state history row: %v", err)
	}
}

// TestRecordStateChange writes one snapshot through the repository and
// reads it back intact.
func TestRecordStateChange(t *testing.T) {
	repo := NewSQLiteStateHistoryRepository(historyTestDB(t))
	ctx := context.Background()

	state := State{On: true, Brightness: 75}
	if err := repo.RecordStateChange(ctx, "dev-1", state, StateHistorySourceStatus); err != nil {
		t.Fatalf("RecordStateChange() error = %v", err)
	}

	entries, err := repo.GetHistory(ctx, "dev-1", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries length = %d, want 1", len(entries))
	}

	entry := entries[0]
	if entry.DeviceID != "dev-1" {
		t.Errorf("DeviceID = %q, want %q", entry.DeviceID, "dev-1")
	}
	if entry.Source != StateHistorySourceStatus {
		t.Errorf("Source = %q, want %q", entry.Source, StateHistorySourceStatus)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero, want non-zero")
	}
	if !entry.State.On || entry.State.Brightness != 75 {
		t.Errorf("State = %+v, want on with brightness 75", entry.State)
	}
}

// TestRecordStateChangeValidation covers the id requirement and the
// empty-source default.
func TestRecordStateChangeValidation(t *testing.T) {
	repo := NewSQLiteStateHistoryRepository(historyTestDB(t))
	ctx := context.Background()

	if err := repo.RecordStateChange(ctx, "", State{}, StateHistorySourceCommand); err == nil {
		t.Error("RecordStateChange() with empty device id should fail")
	}

	// Empty source falls back to the command source.
	if err := repo.RecordStateChange(ctx, "dev-1", State{On: true}, ""); err != nil {
		t.Fatalf("RecordStateChange() error = %v", err)
	}
	entries, err := repo.GetHistory(ctx, "dev-1", 1)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Source != StateHistorySourceCommand {
		t.Errorf("entries = %+v, want one entry with the command source", entries)
	}
}

// TestGetHistory checks newest-first ordering, the limit, and per-device
// isolation.
func TestGetHistory(t *testing.T) {
	db := historyTestDB(t)
	repo := NewSQLiteStateHistoryRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	insertHistoryAt(t, db, "dev-1", `{"on":false}`, StateHistorySourceCommand, now.Add(-2*time.Hour))
	insertHistoryAt(t, db, "dev-1", `{"on":true}`, StateHistorySourceStatus, now.Add(-1*time.Hour))
	insertHistoryAt(t, db, "dev-1", `{"on":true}`, StateHistorySourceCommand, now)
	insertHistoryAt(t, db, "dev-2", `{"on":true}`, StateHistorySourceStatus, now)

	entries, err := repo.GetHistory(ctx, "dev-1", 2)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries length = %d, want 2", len(entries))
	}
	if !entries[0].CreatedAt.Equal(now) {
		t.Errorf("entry[0] CreatedAt = %s, want %s", entries[0].CreatedAt, now)
	}
	if !entries[1].CreatedAt.Equal(now.Add(-1 * time.Hour)) {
		t.Errorf("entry[1] CreatedAt = %s, want %s", entries[1].CreatedAt, now.Add(-1*time.Hour))
	}
}

// TestPruneHistory removes entries past the retention window and leaves
// the rest.
func TestPruneHistory(t *testing.T) {
	db := historyTestDB(t)
	repo := NewSQLiteStateHistoryRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	insertHistoryAt(t, db, "dev-1", `{"on":true}`, StateHistorySourceStatus, now.Add(-40*24*time.Hour))
	insertHistoryAt(t, db, "dev-1", `{"on":false}`, StateHistorySourceStatus, now.Add(-12*time.Hour))

	deleted, err := repo.PruneHistory(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("PruneHistory() error = %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}

	entries, err := repo.GetHistory(ctx, "dev-1", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries length = %d, want 1", len(entries))
	}
	if !entries[0].CreatedAt.Equal(now.Add(-12 * time.Hour)) {
		t.Errorf("remaining CreatedAt = %s, want %s", entries[0].CreatedAt, now.Add(-12*time.Hour))
	}
}
