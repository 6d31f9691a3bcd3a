// Package database owns the connection handle to an embedded SQL engine.
//
// This package manages:
//   - Opening SQLite (mattn/go-sqlite3) or DuckDB (duckdb-go) databases
//   - Pinning a single connection for the lifetime of a Handle
//   - Schema migrations from any fs.FS (additive, versioned files)
//   - Mapping SQLite result codes out of driver errors
//
// SQLite databases are opened read-write, created if absent, with the
// full-mutex threading mode. DuckDB databases are opened READ_WRITE.
//
// Security Considerations:
//   - Database file permissions are set to 0600 (owner read/write only)
//   - Callers bind parameters; nothing here interpolates SQL
//
// Usage:
//
//	h, err := database.Open(ctx, database.Config{Path: "./data/app.db", BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	if err := h.Migrate(ctx, database.Source{FS: os.DirFS("migrations"), Dir: "."}); err != nil {
//	    return err
//	}
//
// Migration Strategy:
//
// Files are named YYYYMMDD_HHMMSS_description.up.sql with an optional
// matching .down.sql. Applied versions are recorded in schema_migrations.
package database
