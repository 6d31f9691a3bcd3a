// Package sqlfacade is a minimal statement-execution façade over an
// embedded SQL engine.
//
// A Facade holds one connection handle and exposes connect, execute,
// query and transaction operations on it:
//
//	f := sqlfacade.New(database.Config{BusyTimeout: 5}, sqlfacade.WithLogger(log))
//	if err := f.Connect(ctx, "./data/app.db"); err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	err := f.ExecuteWithTransaction(ctx,
//	    "INSERT INTO friends (id, name) VALUES (?, ?)",
//	    [][]sqlfacade.Value{sqlfacade.Texts("1", "John"), sqlfacade.Texts("2", "Jane")},
//	)
//
//	rows, err := f.Query(ctx, "SELECT * FROM friends WHERE id = ?", sqlfacade.Texts("1"))
//
// # Binding
//
// Parameters are bound positionally. Only text values are accepted;
// integer, float, bool and null values fail with ErrBinding even though
// Value can represent them and query results can contain them.
//
// # Failure semantics
//
// Every failure aborts the call immediately and nothing is retried.
// Prepared statements are finalized on every path. ExecuteWithTransaction
// rolls back on failure and reports the original error, never the
// rollback error.
package sqlfacade
