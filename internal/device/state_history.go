package device

import (
	"context"
	"time"
)

// History source values. Commands and status refreshes are the only
// recorded mutations; high-rate sync and scene emissions would flood the
// table at the sample rate and are deliberately left out.
const (
	// StateHistorySourceCommand marks a snapshot taken after a confirmed
	// control command (power, brightness, colour, temperature).
	StateHistorySourceCommand = "command"

	// StateHistorySourceStatus marks a snapshot taken after a status
	// query merged the device's own report into the registry.
	StateHistorySourceStatus = "status"
)

// StateHistoryEntry is one recorded device state snapshot.
type StateHistoryEntry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// DeviceID identifies the device the snapshot belongs to.
	DeviceID string `json:"device_id"`

	// State is the full state at the time the change was observed.
	State State `json:"state"`

	// Source records how the change was observed (command, status).
	Source string `json:"source"`

	// CreatedAt is the snapshot timestamp (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// StateHistoryRepository stores and retrieves device state snapshots.
//
// The history is a local audit trail that keeps working when the
// time-series sink is disabled. Implementations must be thread-safe and
// use UTC timestamps.
type StateHistoryRepository interface {
	// RecordStateChange persists one state snapshot for a device.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - deviceID: Unique device identifier
	//   - state: State snapshot to persist
	//   - source: Origin of the change (command, status)
	//
	// Returns:
	//   - error: nil on success, otherwise the underlying persistence error
	RecordStateChange(ctx context.Context, deviceID string, state State, source string) error

	// GetHistory returns recent snapshots for the device, newest first.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - deviceID: Unique device identifier
	//   - limit: Maximum entries to return (implementation may clamp bounds)
	//
	// Returns:
	//   - []StateHistoryEntry: Ordered newest-first history entries (may be empty)
	//   - error: nil on success, otherwise the underlying query error
	GetHistory(ctx context.Context, deviceID string, limit int) ([]StateHistoryEntry, error)

	// PruneHistory deletes snapshots older than the retention window,
	// across all devices. The daemon calls it periodically so the audit
	// trail stays bounded.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - olderThan: Retention window; entries older than now-olderThan go
	//
	// Returns:
	//   - int64: Number of deleted entries
	//   - error: nil on success, otherwise the underlying delete error
	PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error)
}
