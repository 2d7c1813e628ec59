// Package database owns the sequencer's SQLite execution log: it opens
// the file with WAL mode, applies the embedded schema migrations, and
// health-checks the connection for the daemon's startup probe.
//
// The schema is deliberately small. sequence_executions holds one row
// per run, written by the sequence repository, plus the
// schema_migrations bookkeeping table. Migrations are forward-only: a
// release only ever adds tables, columns or indexes, so there is no
// rollback path to maintain.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// The database file is created with 0600 permissions and every query in
// this module uses parameterised statements.
package database
