// Package database provides SQLite connectivity for the Gray Logic Z-Wave
// controller.
//
// The database holds the saved network configuration (nodes and their
// values per network id) written when the operator exits console mode.
//
// This package manages:
//   - Database connection with WAL mode and a busy timeout
//   - Embedded, versioned schema migrations
//   - Transaction helpers shared by the stores
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. Migrations are additive: new columns must
// be nullable or carry a default.
package database
