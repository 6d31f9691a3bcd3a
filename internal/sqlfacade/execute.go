package sqlfacade

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-sqlfacade/internal/infrastructure/database"
)

// Execute runs a statement that does not return rows.
//
// With paramSets nil the statement runs once without parameters. Otherwise
// the statement is prepared once and each set is bound, stepped and reset in
// order; processing stops at the first failing set, leaving earlier sets
// applied unless a transaction is open. A non-nil empty slice prepares the
// statement without running it.
//
// Errors match ErrPreparation, ErrBinding or ErrExecution. Step and reset
// failures, including a step that yields a row, are *ExecutionError values
// carrying the offending set. The prepared statement is finalized on every
// path.
func (f *Facade) Execute(ctx context.Context, query string, paramSets [][]Value) (err error) {
	start := time.Now()
	var affected int64
	defer func() {
		f.observer.ObserveStatement(StatementEvent{
			Kind:     StatementExecute,
			Query:    query,
			Sets:     len(paramSets),
			Rows:     affected,
			Duration: time.Since(start),
			Err:      err,
		})
	}()

	stmt, err := f.prepare(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close() //nolint:errcheck // Finalize; the statement result is already decided

	if paramSets == nil {
		changed, stepErr := f.step(ctx, stmt, nil)
		if stepErr != nil {
			f.logFailure("statement failed", query, stepErr)
			return &ExecutionError{Query: query, Err: stepErr}
		}
		affected += changed
		return nil
	}

	for _, set := range paramSets {
		args, bindErr := bindParameters(set)
		if bindErr != nil {
			return bindErr
		}

		// Each step resets the statement, so one prepared statement serves
		// the whole batch.
		changed, stepErr := f.step(ctx, stmt, args)
		if stepErr != nil {
			f.logFailure("statement failed", query, stepErr)
			return &ExecutionError{Query: query, Params: nonNil(set), Err: stepErr}
		}
		affected += changed
	}

	return nil
}

// Query runs a statement and materialises every row it returns.
//
// params are bound once as in Execute. Column values are converted by engine
// type: integers to int64, floats to float64, text to string. Null and
// anything else leave the column out of the row. Errors match
// ErrPreparation, ErrBinding or ErrExecution.
func (f *Facade) Query(ctx context.Context, query string, params []Value) (rows []Row, err error) {
	start := time.Now()
	defer func() {
		f.observer.ObserveStatement(StatementEvent{
			Kind:     StatementQuery,
			Query:    query,
			Sets:     boolToInt(params != nil),
			Rows:     int64(len(rows)),
			Duration: time.Since(start),
			Err:      err,
		})
	}()

	stmt, err := f.prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close() //nolint:errcheck // Finalize; results are already materialised

	args, err := bindParameters(params)
	if err != nil {
		return nil, err
	}

	cursor, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		f.logFailure("query failed", query, err)
		return nil, &ExecutionError{Query: query, Params: params, Err: err}
	}
	defer cursor.Close()

	rows, err = scanRows(cursor)
	if err != nil {
		f.logFailure("query failed", query, err)
		return nil, &ExecutionError{Query: query, Params: params, Err: err}
	}

	return rows, nil
}

// step runs stmt once with args and returns the number of rows changed.
//
// On SQLite the step must report done: a statement that yields a row, such
// as a SELECT or an INSERT ... RETURNING, fails with errStepProducedRow.
// DuckDB reports DML counts as a result row, so it is stepped through Exec.
func (f *Facade) step(ctx context.Context, stmt *sql.Stmt, args []any) (int64, error) {
	if f.handle.Driver() != database.DriverSQLite {
		result, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return 0, err
		}
		return rowsAffected(result), nil
	}

	cursor, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return 0, err
	}
	if cursor.Next() {
		cursor.Close() //nolint:errcheck // The step already failed
		return 0, errStepProducedRow
	}
	if err := cursor.Err(); err != nil {
		cursor.Close() //nolint:errcheck // The step already failed
		return 0, err
	}
	// Closing the cursor resets the statement.
	if err := cursor.Close(); err != nil {
		return 0, err
	}

	var changed int64
	if err := f.conn().QueryRowContext(ctx, "SELECT changes()").Scan(&changed); err != nil {
		return 0, err
	}
	return changed, nil
}

// prepare compiles query on the pinned connection.
func (f *Facade) prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	conn := f.conn()
	if conn == nil {
		return nil, notConnected(ErrPreparation)
	}

	stmt, err := conn.PrepareContext(ctx, query)
	if err != nil {
		f.logFailure("statement preparation failed", query, err)
		return nil, fmt.Errorf("%w: %w", ErrPreparation, err)
	}
	return stmt, nil
}

// scanRows drains cursor into Rows in engine order. It always returns a
// non-nil slice on success so zero rows and no rows read the same.
func scanRows(cursor *sql.Rows) ([]Row, error) {
	columns, err := cursor.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	values := make([]any, len(columns))
	targets := make([]any, len(columns))
	for i := range values {
		targets[i] = &values[i]
	}

	rows := []Row{}
	for cursor.Next() {
		if err := cursor.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(Row, len(columns))
		for i, name := range columns {
			v := materialize(values[i])
			if v == nil {
				delete(row, name)
				continue
			}
			row[name] = v
		}
		rows = append(rows, row)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return rows, nil
}

// rowsAffected ignores drivers that cannot report a count.
func rowsAffected(result sql.Result) int64 {
	n, err := result.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}

// nonNil keeps an empty-but-present set distinguishable from "no parameters".
func nonNil(set []Value) []Value {
	if set == nil {
		return []Value{}
	}
	return set
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
