package sqlfacade

import (
	"context"
	"fmt"
	"time"
)

// Transaction boundary statements, understood by SQLite and DuckDB alike.
const (
	sqlBegin    = "BEGIN TRANSACTION"
	sqlCommit   = "COMMIT"
	sqlRollback = "ROLLBACK TRANSACTION"
)

// BeginTransaction opens an explicit transaction on the handle.
// Transactions do not nest; a second begin fails with ErrTransactionActive.
// Failures match ErrExecution.
func (f *Facade) BeginTransaction(ctx context.Context) error {
	conn := f.conn()
	if conn == nil {
		return notConnected(ErrExecution)
	}
	if f.state == stateInTransaction {
		return fmt.Errorf("%w: failed to begin transaction: %w", ErrExecution, ErrTransactionActive)
	}

	if _, err := conn.ExecContext(ctx, sqlBegin); err != nil {
		f.logFailure("begin failed", sqlBegin, err)
		return fmt.Errorf("%w: failed to begin transaction: %w", ErrExecution, err)
	}

	f.state = stateInTransaction
	return nil
}

// CommitTransaction commits the open transaction. Failures match ErrCommit;
// after a failed commit the transaction is still open.
func (f *Facade) CommitTransaction(ctx context.Context) error {
	conn := f.conn()
	if conn == nil {
		return notConnected(ErrCommit)
	}
	if f.state != stateInTransaction {
		return fmt.Errorf("%w: %w", ErrCommit, ErrNoTransaction)
	}

	if _, err := conn.ExecContext(ctx, sqlCommit); err != nil {
		f.logFailure("commit failed", sqlCommit, err)
		return fmt.Errorf("%w: %w", ErrCommit, err)
	}

	f.state = stateIdle
	return nil
}

// rollbackTransaction abandons the open transaction. The façade returns to
// idle even when the engine reports failure, since SQLite may already have
// rolled back on its own.
func (f *Facade) rollbackTransaction(ctx context.Context) error {
	conn := f.conn()
	if conn == nil {
		return notConnected(ErrRollback)
	}
	if f.state != stateInTransaction {
		return fmt.Errorf("%w: %w", ErrRollback, ErrNoTransaction)
	}

	f.state = stateIdle
	if _, err := conn.ExecContext(ctx, sqlRollback); err != nil {
		return fmt.Errorf("%w: %w", ErrRollback, err)
	}
	return nil
}

// ExecuteWithTransaction runs Execute between BEGIN and COMMIT.
//
// If the statement or the commit fails, the transaction is rolled back and
// the original error is returned. A rollback failure is logged and dropped
// so the root cause stays visible. A failed BEGIN is returned as is.
func (f *Facade) ExecuteWithTransaction(ctx context.Context, query string, paramSets [][]Value) error {
	if err := f.BeginTransaction(ctx); err != nil {
		return err
	}

	start := time.Now()

	err := f.Execute(ctx, query, paramSets)
	if err == nil {
		err = f.CommitTransaction(ctx)
	}

	if err == nil {
		f.observer.ObserveTransaction(TransactionEvent{
			Query:    query,
			Outcome:  OutcomeCommitted,
			Duration: time.Since(start),
		})
		return nil
	}

	// Roll back even if ctx is already cancelled.
	if rbErr := f.rollbackTransaction(context.WithoutCancel(ctx)); rbErr != nil {
		f.logger.Warn("rollback failed, returning original error",
			"query", query,
			"rollback_error", rbErr,
		)
	}

	f.observer.ObserveTransaction(TransactionEvent{
		Query:    query,
		Outcome:  OutcomeRolledBack,
		Duration: time.Since(start),
		Err:      err,
	})
	return err
}
