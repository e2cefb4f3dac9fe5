package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// dirMode is the permission mode for a freshly created database directory.
	dirMode = 0750

	// fileMode keeps the database file owner-only. Scene definitions are not
	// secrets, but the state history reveals occupancy patterns.
	fileMode = 0600

	// openTimeout bounds the connectivity check during Open.
	openTimeout = 5 * time.Second

	// idleLifetime is how long an idle connection is kept before recycling.
	idleLifetime = 30 * time.Minute
)

// DB is the shared SQLite handle for scene storage and the device state
// history. It embeds *sql.DB, so repositories use the standard query API
// directly; the wrapper adds migrations, a health probe and lifecycle
// management on top.
type DB struct {
	*sql.DB
	path string
}

// Config holds the database settings from the scenes section of config.yaml.
type Config struct {
	// Path is the SQLite file location. Parent directories are created on
	// first open.
	Path string

	// WALMode enables write-ahead logging. Keep it on: scene reads during
	// playback must not block behind history writes.
	WALMode bool

	// BusyTimeout is how long a statement waits on a locked database, in
	// seconds, before failing with SQLITE_BUSY.
	BusyTimeout int
}

// Open opens (creating if necessary) the SQLite database at cfg.Path,
// applies the connection pragmas, and verifies the handle with a ping.
//
// The pool is pinned to a single connection: SQLite allows one writer, and
// a single shared connection sidesteps writer starvation entirely at the
// request rates a lighting controller sees.
//
// Parameters:
//   - cfg: Database configuration
//
// Returns:
//   - *DB: Verified database handle
//   - error: If the directory, file, or connection could not be set up
func Open(cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirMode); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// Pragmas ride on the DSN; see github.com/mattn/go-sqlite3 docs.
	// Foreign keys stay on so scene keyframes cannot outlive their scene.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path, cfg.BusyTimeout*1000)
	if cfg.WALMode {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(idleLifetime)

	db := &DB{DB: sqlDB, path: cfg.Path}

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	// First run: the file may not exist until the first write, so a chmod
	// failure here is not an error.
	_ = os.Chmod(cfg.Path, fileMode) //nolint:errcheck // File appears after first write

	return db, nil
}

// Close releases the database handle. Call on shutdown, after the
// repositories are done.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the filesystem path of the database file.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck runs a trivial query to confirm the database answers.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil when healthy
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Stats exposes the connection pool counters for diagnostics.
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// ExecContext runs a statement that returns no rows, wrapping any failure
// with context so callers need not re-annotate.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - query: SQL with ? placeholders
//   - args: Placeholder arguments
//
// Returns:
//   - sql.Result: LastInsertId and RowsAffected
//   - error: If execution fails
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	result, err := db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return result, nil
}

// QueryRowContext runs a single-row query.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - query: SQL with ? placeholders
//   - args: Placeholder arguments
//
// Returns:
//   - *sql.Row: Row to scan results from
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.DB.QueryRowContext(ctx, query, args...)
}

// BeginTx starts a transaction. Multi-row writes (scene upserts and their
// keyframes) always go through one.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - opts: Transaction options (nil for defaults)
//
// Returns:
//   - *sql.Tx: Transaction handle
//   - error: If the transaction could not start
//
// Example:
//
//	tx, err := db.BeginTx(ctx, nil)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback() // No-op if committed
//
//	// ... execute queries on tx ...
//
//	return tx.Commit()
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	return tx, nil
}
