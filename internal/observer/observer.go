// Package observer provides sqlfacade.Observer implementations that turn
// statement and transaction events into log lines, InfluxDB points and
// MQTT messages.
//
// Observers are combined with Multi and installed with sqlfacade.WithObserver:
//
//	obs := observer.Multi{
//	    observer.NewLogging(log),
//	    observer.NewMetrics(influxClient),
//	}
//	facade := sqlfacade.New(dbCfg, sqlfacade.WithObserver(obs))
package observer

import (
	"errors"

	"github.com/nerrad567/gray-logic-sqlfacade/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-sqlfacade/internal/sqlfacade"
)

// Multi fans every event out to each observer in order.
type Multi []sqlfacade.Observer

// ObserveStatement implements sqlfacade.Observer.
func (m Multi) ObserveStatement(ev sqlfacade.StatementEvent) {
	for _, o := range m {
		o.ObserveStatement(ev)
	}
}

// ObserveTransaction implements sqlfacade.Observer.
func (m Multi) ObserveTransaction(ev sqlfacade.TransactionEvent) {
	for _, o := range m {
		o.ObserveTransaction(ev)
	}
}

// categories names the façade error categories. Event errors are reported
// by category only since an ExecutionError renders the bound parameters.
var categories = []struct {
	err  error
	name string
}{
	{sqlfacade.ErrConnection, "connection"},
	{sqlfacade.ErrPreparation, "preparation"},
	{sqlfacade.ErrBinding, "binding"},
	{sqlfacade.ErrExecution, "execution"},
	{sqlfacade.ErrCommit, "commit"},
	{sqlfacade.ErrRollback, "rollback"},
}

// errorCategory returns the category name of err, "" for nil.
func errorCategory(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range categories {
		if errors.Is(err, c.err) {
			return c.name
		}
	}
	return "unknown"
}

// Logging writes one debug line per statement and one line per transaction.
// Rolled back transactions are logged at warn.
type Logging struct {
	logger *logging.Logger
}

// NewLogging returns a Logging observer. A nil logger discards everything.
func NewLogging(logger *logging.Logger) *Logging {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Logging{logger: logger}
}

// ObserveStatement implements sqlfacade.Observer.
func (l *Logging) ObserveStatement(ev sqlfacade.StatementEvent) {
	args := []any{
		"kind", string(ev.Kind),
		"query", ev.Query,
		"sets", ev.Sets,
		"rows", ev.Rows,
		"duration", ev.Duration,
	}
	if ev.Err != nil {
		args = append(args, "error", errorCategory(ev.Err))
	}
	l.logger.Debug("statement finished", args...)
}

// ObserveTransaction implements sqlfacade.Observer.
func (l *Logging) ObserveTransaction(ev sqlfacade.TransactionEvent) {
	if ev.Outcome == sqlfacade.OutcomeRolledBack {
		l.logger.Warn("transaction rolled back",
			"query", ev.Query,
			"duration", ev.Duration,
			"error", errorCategory(ev.Err),
		)
		return
	}
	l.logger.Debug("transaction committed",
		"query", ev.Query,
		"duration", ev.Duration,
	)
}
