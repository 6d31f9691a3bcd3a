package sqlfacade

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories for façade operations.
//
// Every error returned by a Facade method matches exactly one category
// with errors.Is:
//
//	if errors.Is(err, sqlfacade.ErrBinding) {
//	    // a parameter was not text
//	}
var (
	// ErrConnection is returned when the engine handle cannot be opened.
	ErrConnection = errors.New("sqlfacade: connection failed")

	// ErrPreparation is returned when a statement fails to compile.
	ErrPreparation = errors.New("sqlfacade: statement preparation failed")

	// ErrExecution is returned when stepping or resetting a statement fails,
	// or when a transaction cannot begin.
	ErrExecution = errors.New("sqlfacade: execution failed")

	// ErrCommit is returned when a transaction cannot be committed.
	ErrCommit = errors.New("sqlfacade: commit failed")

	// ErrRollback is returned when a transaction cannot be rolled back.
	ErrRollback = errors.New("sqlfacade: rollback failed")

	// ErrBinding is returned for parameter values outside the bindable set.
	ErrBinding = errors.New("sqlfacade: unsupported parameter type for binding")
)

// Causes wrapped alongside a category.
var (
	// ErrNotConnected means the operation ran without an open handle.
	ErrNotConnected = errors.New("sqlfacade: not connected")

	// ErrTransactionActive means BeginTransaction ran inside a transaction.
	ErrTransactionActive = errors.New("sqlfacade: transaction already in progress")

	// ErrNoTransaction means commit or rollback ran outside a transaction.
	ErrNoTransaction = errors.New("sqlfacade: no transaction in progress")
)

// errStepProducedRow is the cause of an ExecutionError raised when a step
// returns a row instead of completing.
var errStepProducedRow = errors.New("statement returned a row instead of completing")

// ExecutionError reports a statement that failed while stepping or resetting.
// It matches ErrExecution and unwraps to the engine error.
type ExecutionError struct {
	// Query is the statement text.
	Query string

	// Params is the parameter set being applied, nil for a parameterless run.
	Params []Value

	// Err is the underlying engine error.
	Err error
}

func (e *ExecutionError) Error() string {
	var b strings.Builder
	b.WriteString("sqlfacade: failed to execute query")
	if e.Query != "" {
		fmt.Fprintf(&b, " %q", e.Query)
	}
	if e.Params != nil {
		fmt.Fprintf(&b, " with parameters %v", e.Params)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the ErrExecution category and the engine cause.
func (e *ExecutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExecution}
	}
	return []error{ErrExecution, e.Err}
}

// notConnected tags ErrNotConnected with the category the operation reports.
func notConnected(category error) error {
	return fmt.Errorf("%w: %w", category, ErrNotConnected)
}
