package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementStatements   = "sqlfacade_statements"
	MeasurementTransactions = "sqlfacade_transactions"
)

// Status tag values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// StatementMetric is one Execute or Query call.
type StatementMetric struct {
	// Kind is "execute" or "query".
	Kind     string
	Failed   bool
	Sets     int
	Rows     int64
	Duration time.Duration
}

// TransactionMetric is one transactional execution.
type TransactionMetric struct {
	// Outcome is "committed" or "rolled_back".
	Outcome  string
	Duration time.Duration
}

// WriteStatementMetric records a statement timing point.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Example:
//
//	client.WriteStatementMetric(influxdb.StatementMetric{
//	    Kind: "execute", Sets: 3, Rows: 3, Duration: 2 * time.Millisecond,
//	})
func (c *Client) WriteStatementMetric(m StatementMetric) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(statementPoint(m, time.Now()))
}

// WriteTransactionMetric records a transaction timing point.
func (c *Client) WriteTransactionMetric(m TransactionMetric) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(transactionPoint(m, time.Now()))
}

func statementPoint(m StatementMetric, at time.Time) *write.Point {
	status := StatusOK
	if m.Failed {
		status = StatusError
	}

	return write.NewPoint(
		MeasurementStatements,
		map[string]string{
			"kind":   m.Kind,
			"status": status,
		},
		map[string]interface{}{
			"duration_ms": durationMillis(m.Duration),
			"sets":        m.Sets,
			"rows":        m.Rows,
		},
		at,
	)
}

func transactionPoint(m TransactionMetric, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementTransactions,
		map[string]string{
			"outcome": m.Outcome,
		},
		map[string]interface{}{
			"duration_ms": durationMillis(m.Duration),
		},
		at,
	)
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
