package observer

import (
	"github.com/nerrad567/gray-logic-sqlfacade/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-sqlfacade/internal/sqlfacade"
)

// MetricsWriter accepts timing points. *influxdb.Client satisfies it.
type MetricsWriter interface {
	WriteStatementMetric(m influxdb.StatementMetric)
	WriteTransactionMetric(m influxdb.TransactionMetric)
}

// Metrics records statement and transaction timings.
// Writes are batched by the writer, so observing never waits on the network.
type Metrics struct {
	writer MetricsWriter
}

// NewMetrics returns a Metrics observer writing to w.
func NewMetrics(w MetricsWriter) *Metrics {
	return &Metrics{writer: w}
}

// ObserveStatement implements sqlfacade.Observer.
func (m *Metrics) ObserveStatement(ev sqlfacade.StatementEvent) {
	m.writer.WriteStatementMetric(influxdb.StatementMetric{
		Kind:     string(ev.Kind),
		Failed:   ev.Err != nil,
		Sets:     ev.Sets,
		Rows:     ev.Rows,
		Duration: ev.Duration,
	})
}

// ObserveTransaction implements sqlfacade.Observer.
func (m *Metrics) ObserveTransaction(ev sqlfacade.TransactionEvent) {
	m.writer.WriteTransactionMetric(influxdb.TransactionMetric{
		Outcome:  string(ev.Outcome),
		Duration: ev.Duration,
	})
}
