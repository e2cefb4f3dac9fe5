// Package database owns the SQLite handle behind scene storage and the
// device state history.
//
// It provides the connection (WAL mode, busy timeout, single-writer
// pool), embedded schema migrations, and a health probe. The repositories
// in internal/scene and internal/device run their queries through the
// embedded *sql.DB; this package never sees their SQL.
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The database file is chmodded to 0600; the state history reveals
//     when rooms are in use
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration Strategy:
//
// Migrations are additive-only so an older binary can open a newer
// database:
//   - New columns must be NULLABLE or have DEFAULT values
//   - Never DROP or RENAME columns
//   - Each migration ships .up.sql and .down.sql
package database
