package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // DuckDB driver
	"github.com/mattn/go-sqlite3"
)

// Supported drivers, as registered with database/sql.
const (
	DriverSQLite = "sqlite3"
	DriverDuckDB = "duckdb"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Database configuration constants.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout bounds the initial connectivity check.
	connectionTimeout = 5 * time.Second
)

var (
	// ErrUnsupportedDriver is returned by Open for a driver name it does not know.
	ErrUnsupportedDriver = errors.New("database: unsupported driver")

	// ErrInvalidPath is returned by Open for a path the driver cannot address.
	ErrInvalidPath = errors.New("database: invalid path")
)

// uriPathEscaper escapes the characters SQLite treats specially in the path
// of a file: URI. SQLite percent-decodes the path before opening it.
var uriPathEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// Handle owns exactly one connection to an embedded engine.
//
// The underlying *sql.DB is capped at a single open connection and that
// connection is pinned for the lifetime of the handle, so session state
// such as an explicit BEGIN survives between calls.
//
// Thread Safety:
//   - A Handle is not safe for concurrent use; callers serialise access.
type Handle struct {
	db     *sql.DB
	conn   *sql.Conn
	path   string
	driver string
}

// Config contains database configuration options.
// These map to the database section of config.yaml.
type Config struct {
	// Driver is DriverSQLite (default when empty) or DriverDuckDB.
	Driver string

	// Path is the filesystem path to the database file, or MemoryPath.
	// The directory will be created if it doesn't exist.
	Path string

	// WALMode enables Write-Ahead Logging (SQLite only).
	WALMode bool

	// BusyTimeout is the maximum time to wait for a database lock (seconds, SQLite only).
	BusyTimeout int

	// ForeignKeys enables foreign key enforcement (SQLite only).
	ForeignKeys bool
}

// Open creates the single connection handle described by cfg.
//
// It performs the following setup:
//  1. Creates the database directory if it doesn't exist
//  2. Opens the database read-write, creating it if absent, in full-mutex mode
//  3. Pins one connection and verifies it with a ping
//  4. Sets file permissions (0600)
//
// Returns:
//   - *Handle: Connected handle
//   - error: If the directory, open or ping fails
func Open(ctx context.Context, cfg Config) (*Handle, error) {
	driver := strings.ToLower(cfg.Driver)
	if driver == "" {
		driver = DriverSQLite
	}

	if cfg.Path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn, err := buildDSN(driver, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One handle, one connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	conn, err := sqlDB.Conn(pingCtx)
	if err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}

	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()  //nolint:errcheck // Best effort cleanup on error path
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	if cfg.Path != MemoryPath {
		// Ignore error - some engines create the file lazily on first write
		_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // Intentional: file may not exist yet
	}

	return &Handle{
		db:     sqlDB,
		conn:   conn,
		path:   cfg.Path,
		driver: driver,
	}, nil
}

// buildDSN assembles the driver-specific connection string.
func buildDSN(driver string, cfg Config) (string, error) {
	switch driver {
	case DriverSQLite:
		// See: https://github.com/mattn/go-sqlite3#connection-string
		params := url.Values{}
		params.Set("mode", "rwc")
		params.Set("_mutex", "full")
		params.Set("_busy_timeout", fmt.Sprint(cfg.BusyTimeout*msPerSecond))
		if cfg.ForeignKeys {
			params.Set("_foreign_keys", "on")
		} else {
			params.Set("_foreign_keys", "off")
		}
		if cfg.WALMode && cfg.Path != MemoryPath {
			params.Set("_journal_mode", "WAL")
			params.Set("_synchronous", "NORMAL")
		}
		return "file:" + uriPathEscaper.Replace(cfg.Path) + "?" + params.Encode(), nil

	case DriverDuckDB:
		if cfg.Path == MemoryPath {
			return "", nil
		}
		// The driver takes everything before the first "?" as the path.
		if strings.Contains(cfg.Path, "?") {
			return "", fmt.Errorf("%w: %q contains \"?\"", ErrInvalidPath, cfg.Path)
		}
		return cfg.Path + "?access_mode=READ_WRITE", nil

	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// Close releases the pinned connection and the pool behind it.
// Calling Close more than once, or on a nil Handle, is a no-op.
func (h *Handle) Close() error {
	if h == nil || h.db == nil {
		return nil
	}

	var errs []error
	if h.conn != nil {
		if err := h.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			errs = append(errs, err)
		}
		h.conn = nil
	}
	if err := h.db.Close(); err != nil {
		errs = append(errs, err)
	}
	h.db = nil

	if len(errs) > 0 {
		return fmt.Errorf("closing database: %w", errors.Join(errs...))
	}
	return nil
}

// Conn returns the pinned connection. It is nil once the handle is closed.
func (h *Handle) Conn() *sql.Conn {
	return h.conn
}

// Path returns the filesystem path to the database file.
func (h *Handle) Path() string {
	return h.path
}

// Driver returns the database/sql driver name in use.
func (h *Handle) Driver() string {
	return h.driver
}

// HealthCheck verifies the connection is alive with a trivial query.
func (h *Handle) HealthCheck(ctx context.Context) error {
	if h.conn == nil {
		return fmt.Errorf("database health check failed: %w", sql.ErrConnDone)
	}

	var result int
	if err := h.conn.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// TimestampFormat is the layout SQLite uses for DATETIME text. Time values
// read back from the engine are rendered with it.
var TimestampFormat = sqlite3.SQLiteTimestampFormats[0]

// SQLiteVersion reports the linked SQLite library version.
func SQLiteVersion() string {
	version, _, _ := sqlite3.Version()
	return version
}

// EngineCode extracts SQLite primary and extended result codes from err.
// ok is false for errors that did not come from SQLite.
func EngineCode(err error) (code int, extended int, ok bool) {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return 0, 0, false
	}
	return int(sqliteErr.Code), int(sqliteErr.ExtendedCode), true
}

// IsConstraintViolation reports whether err is an SQLite constraint failure.
func IsConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
