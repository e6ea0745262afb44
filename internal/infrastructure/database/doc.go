// Package database provides SQLite connectivity for the peripheral registry.
//
// This package manages:
//   - Connection setup with WAL mode, busy timeout and foreign keys
//   - Versioned schema migrations loaded from an fs.FS
//   - A single-connection pool so status transitions serialise
//
// All queries use parameterised statements. The database file is chmod 0600.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are additive: new columns are NULLABLE or carry a DEFAULT, and
// every .up.sql has a matching .down.sql.
package database
