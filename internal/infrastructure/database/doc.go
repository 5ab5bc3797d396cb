// Package database provides SQLite connectivity for automation definitions
// and run history.
//
// This package manages:
//   - Opening the database with WAL mode and a busy timeout
//   - Forward-only schema migrations loaded from an fs.FS
//   - Health checks for the control API
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with a
// matching .down.sql. All queries are parameterised.
package database
