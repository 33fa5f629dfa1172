// Package database provides SQLite database connectivity for SmokeSense.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Additive schema migrations embedded into the binary
//   - Connection pooling and lifecycle management
//
// Security considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
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
// The only table SmokeSense owns is the event log; sensor readings are kept
// in memory and never persisted.
package database
