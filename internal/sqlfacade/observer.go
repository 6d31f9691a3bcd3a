package sqlfacade

import "time"

// StatementKind distinguishes write statements from queries.
type StatementKind string

// Statement kinds reported in StatementEvent.
const (
	StatementExecute StatementKind = "execute"
	StatementQuery   StatementKind = "query"
)

// Outcome is how a transactional execution ended.
type Outcome string

// Transaction outcomes reported in TransactionEvent.
const (
	OutcomeCommitted  Outcome = "committed"
	OutcomeRolledBack Outcome = "rolled_back"
)

// StatementEvent describes one Execute or Query call.
type StatementEvent struct {
	Kind  StatementKind
	Query string

	// Sets is the number of parameter sets applied, 0 for a parameterless run.
	Sets int

	// Rows is rows affected for Execute and rows returned for Query.
	Rows int64

	Duration time.Duration
	Err      error
}

// TransactionEvent describes one ExecuteWithTransaction call that got past BEGIN.
type TransactionEvent struct {
	Query    string
	Outcome  Outcome
	Duration time.Duration
	Err      error
}

// Observer receives events after each operation completes.
// Implementations must not block; they run on the caller's goroutine.
type Observer interface {
	ObserveStatement(StatementEvent)
	ObserveTransaction(TransactionEvent)
}

// nopObserver discards events.
type nopObserver struct{}

func (nopObserver) ObserveStatement(StatementEvent)     {}
func (nopObserver) ObserveTransaction(TransactionEvent) {}
