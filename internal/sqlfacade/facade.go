package sqlfacade

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/nerrad567/gray-logic-sqlfacade/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-sqlfacade/internal/infrastructure/logging"
)

// txState tracks the explicit transaction bracket on the handle.
type txState uint8

const (
	stateIdle txState = iota
	stateInTransaction
)

// Facade executes statements against one embedded engine connection.
//
// A Facade owns at most one connection handle. Every method runs to
// completion on the caller's goroutine.
//
// Thread Safety:
//   - A Facade is not safe for concurrent use. The engine is opened in
//     full-mutex mode, but the façade itself takes no locks.
type Facade struct {
	cfg      database.Config
	handle   *database.Handle
	state    txState
	logger   *logging.Logger
	observer Observer
}

// Option configures a Facade.
type Option func(*Facade)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *logging.Logger) Option {
	return func(f *Facade) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithObserver sets the observer notified after each statement and transaction.
func WithObserver(observer Observer) Option {
	return func(f *Facade) {
		if observer != nil {
			f.observer = observer
		}
	}
}

// New creates a disconnected Facade. cfg supplies the driver and engine
// pragmas; its Path is replaced by the path given to Connect.
func New(cfg database.Config, opts ...Option) *Facade {
	f := &Facade{
		cfg:      cfg,
		logger:   logging.Discard(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Connect opens (creating if absent) a read-write database at path.
//
// An already open handle is closed first. On failure the Facade stays
// disconnected and the error matches ErrConnection.
func (f *Facade) Connect(ctx context.Context, path string) error {
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: releasing previous handle: %w", ErrConnection, err)
	}

	cfg := f.cfg
	cfg.Path = path

	handle, err := database.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	f.handle = handle
	f.state = stateIdle

	args := []any{"path", path, "driver", handle.Driver()}
	if handle.Driver() == database.DriverSQLite {
		args = append(args, "sqlite_version", database.SQLiteVersion())
	}
	f.logger.Info("database connected", args...)
	return nil
}

// Close releases the handle. It is safe to call repeatedly, before
// Connect, and from a deferred cleanup after earlier failures.
func (f *Facade) Close() error {
	if f.handle == nil {
		return nil
	}

	handle := f.handle
	f.handle = nil
	f.state = stateIdle

	return handle.Close()
}

// IsConnected reports whether a handle is open.
func (f *Facade) IsConnected() bool {
	return f.handle != nil
}

// InTransaction reports whether BeginTransaction has run without a
// matching commit or rollback.
func (f *Facade) InTransaction() bool {
	return f.state == stateInTransaction
}

// HealthCheck verifies the handle answers a trivial query.
func (f *Facade) HealthCheck(ctx context.Context) error {
	if f.handle == nil {
		return ErrNotConnected
	}
	return f.handle.HealthCheck(ctx)
}

// Migrate applies pending versioned migrations found in dir of fsys.
// It cannot run inside an explicit transaction.
func (f *Facade) Migrate(ctx context.Context, fsys fs.FS, dir string) error {
	if f.handle == nil {
		return notConnected(ErrExecution)
	}
	if f.state == stateInTransaction {
		return fmt.Errorf("%w: migrate: %w", ErrExecution, ErrTransactionActive)
	}

	if err := f.handle.Migrate(ctx, database.Source{FS: fsys, Dir: dir}); err != nil {
		return fmt.Errorf("%w: %w", ErrExecution, err)
	}
	return nil
}

// conn returns the pinned connection or nil when disconnected.
func (f *Facade) conn() *sql.Conn {
	if f.handle == nil {
		return nil
	}
	return f.handle.Conn()
}

// logFailure records an engine failure at debug level with SQLite result
// codes when the engine supplied them. Parameters are never logged.
func (f *Facade) logFailure(msg, query string, err error) {
	args := []any{"query", query, "error", err}
	if code, extended, ok := database.EngineCode(err); ok {
		args = append(args, "sqlite_code", code, "sqlite_extended_code", extended)
	}
	f.logger.Debug(msg, args...)
}
