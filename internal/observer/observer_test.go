package observer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-sqlfacade/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-sqlfacade/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-sqlfacade/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-sqlfacade/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-sqlfacade/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-sqlfacade/internal/sqlfacade"
)

type recorder struct {
	statements   []sqlfacade.StatementEvent
	transactions []sqlfacade.TransactionEvent
}

func (r *recorder) ObserveStatement(ev sqlfacade.StatementEvent)     { r.statements = append(r.statements, ev) }
func (r *recorder) ObserveTransaction(ev sqlfacade.TransactionEvent) { r.transactions = append(r.transactions, ev) }

type fakeWriter struct {
	statements   []influxdb.StatementMetric
	transactions []influxdb.TransactionMetric
}

func (f *fakeWriter) WriteStatementMetric(m influxdb.StatementMetric) {
	f.statements = append(f.statements, m)
}

func (f *fakeWriter) WriteTransactionMetric(m influxdb.TransactionMetric) {
	f.transactions = append(f.transactions, m)
}

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []published
	err      error
	block    chan struct{}
}

func (f *fakePublisher) PublishEvent(topic string, payload []byte) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, published{topic: topic, payload: payload})
	return f.err
}

// bindingFailure returns an error in the ErrBinding category.
func bindingFailure() error {
	return fmt.Errorf("%w: parameter 2 is integer, only text can be bound", sqlfacade.ErrBinding)
}

func captureLogger(level string) (*logging.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logging.NewWithWriter(config.LoggingConfig{Level: level, Format: "json"}, "test", &buf), &buf
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, b}

	m.ObserveStatement(sqlfacade.StatementEvent{Kind: sqlfacade.StatementQuery, Query: "SELECT 1"})
	m.ObserveTransaction(sqlfacade.TransactionEvent{Outcome: sqlfacade.OutcomeCommitted})

	for _, r := range []*recorder{a, b} {
		require.Len(t, r.statements, 1)
		require.Equal(t, "SELECT 1", r.statements[0].Query)
		require.Len(t, r.transactions, 1)
	}

	// An empty fan-out is valid.
	Multi{}.ObserveStatement(sqlfacade.StatementEvent{})
}

func TestErrorCategory(t *testing.T) {
	require.Equal(t, "", errorCategory(nil))
	require.Equal(t, "binding", errorCategory(bindingFailure()))
	require.Equal(t, "execution", errorCategory(&sqlfacade.ExecutionError{Query: "q", Err: errors.New("boom")}))
	require.Equal(t, "commit", errorCategory(fmt.Errorf("%w: %w", sqlfacade.ErrCommit, sqlfacade.ErrNoTransaction)))
	require.Equal(t, "unknown", errorCategory(errors.New("other")))
}

func TestLogging(t *testing.T) {
	logger, buf := captureLogger("debug")
	l := NewLogging(logger)

	l.ObserveStatement(sqlfacade.StatementEvent{
		Kind:  sqlfacade.StatementExecute,
		Query: "INSERT INTO friends VALUES (?, ?)",
		Sets:  2,
		Rows:  2,
	})
	l.ObserveTransaction(sqlfacade.TransactionEvent{
		Query:   "INSERT INTO friends VALUES (?, ?)",
		Outcome: sqlfacade.OutcomeRolledBack,
		Err: &sqlfacade.ExecutionError{
			Query:  "INSERT INTO friends VALUES (?, ?)",
			Params: sqlfacade.Texts("1", "secret-value"),
			Err:    errors.New("constraint failed"),
		},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var statement map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &statement))
	require.Equal(t, "DEBUG", statement["level"])
	require.Equal(t, "statement finished", statement["msg"])
	require.Equal(t, "execute", statement["kind"])
	require.EqualValues(t, 2, statement["rows"])

	var rollback map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rollback))
	require.Equal(t, "WARN", rollback["level"])
	require.Equal(t, "execution", rollback["error"])
	require.NotContains(t, lines[1], "secret-value")
}

func TestLogging_NilLogger(t *testing.T) {
	l := NewLogging(nil)
	l.ObserveStatement(sqlfacade.StatementEvent{})
	l.ObserveTransaction(sqlfacade.TransactionEvent{Outcome: sqlfacade.OutcomeCommitted})
}

func TestMetrics(t *testing.T) {
	w := &fakeWriter{}
	m := NewMetrics(w)

	m.ObserveStatement(sqlfacade.StatementEvent{
		Kind:     sqlfacade.StatementQuery,
		Sets:     1,
		Rows:     7,
		Duration: 3 * time.Millisecond,
	})
	m.ObserveStatement(sqlfacade.StatementEvent{
		Kind: sqlfacade.StatementExecute,
		Err:  bindingFailure(),
	})
	m.ObserveTransaction(sqlfacade.TransactionEvent{
		Outcome:  sqlfacade.OutcomeCommitted,
		Duration: time.Millisecond,
	})

	require.Equal(t, []influxdb.StatementMetric{
		{Kind: "query", Sets: 1, Rows: 7, Duration: 3 * time.Millisecond},
		{Kind: "execute", Failed: true},
	}, w.statements)
	require.Equal(t, []influxdb.TransactionMetric{
		{Outcome: "committed", Duration: time.Millisecond},
	}, w.transactions)
}

func TestEvents(t *testing.T) {
	pub := &fakePublisher{}
	e := NewEvents(pub, mqtt.Topics{Prefix: "app"}, nil)

	e.ObserveStatement(sqlfacade.StatementEvent{Query: "ignored"})
	e.ObserveTransaction(sqlfacade.TransactionEvent{
		Query:    "INSERT INTO friends VALUES (?, ?)",
		Outcome:  sqlfacade.OutcomeCommitted,
		Duration: 1500 * time.Microsecond,
	})
	e.ObserveTransaction(sqlfacade.TransactionEvent{
		Query:   "INSERT INTO friends VALUES (?, ?)",
		Outcome: sqlfacade.OutcomeRolledBack,
		Err:     bindingFailure(),
	})
	e.Close()

	require.Len(t, pub.messages, 2)
	require.Equal(t, "app/transaction/committed", pub.messages[0].topic)
	require.Equal(t, "app/transaction/rolled_back", pub.messages[1].topic)

	var committed TransactionMessage
	require.NoError(t, json.Unmarshal(pub.messages[0].payload, &committed))
	require.Equal(t, "committed", committed.Outcome)
	require.Equal(t, "INSERT INTO friends VALUES (?, ?)", committed.Query)
	require.InDelta(t, 1.5, committed.DurationMS, 1e-9)
	require.Empty(t, committed.Error)
	_, err := time.Parse(time.RFC3339, committed.Timestamp)
	require.NoError(t, err)

	var rolledBack TransactionMessage
	require.NoError(t, json.Unmarshal(pub.messages[1].payload, &rolledBack))
	require.Equal(t, "binding", rolledBack.Error)
	require.NotEqual(t, committed.ID, rolledBack.ID)
	_, err = uuid.Parse(rolledBack.ID)
	require.NoError(t, err)

	// Close is idempotent.
	e.Close()
}

func TestEvents_PublishFailureIsLogged(t *testing.T) {
	logger, buf := captureLogger("warn")
	pub := &fakePublisher{err: mqtt.ErrNotConnected}
	e := NewEvents(pub, mqtt.Topics{}, logger)

	e.ObserveTransaction(sqlfacade.TransactionEvent{Outcome: sqlfacade.OutcomeCommitted})
	e.Close()

	require.Contains(t, buf.String(), "transaction event not published")
	require.Contains(t, buf.String(), "sqlfacade/transaction/committed")
}

func TestEvents_DropsWhenQueueFull(t *testing.T) {
	logger, buf := captureLogger("warn")
	pub := &fakePublisher{block: make(chan struct{})}
	e := NewEvents(pub, mqtt.Topics{}, logger)

	// One event is held by the blocked publisher, the queue fills behind it.
	total := eventQueueSize + 5
	for range total {
		e.ObserveTransaction(sqlfacade.TransactionEvent{Outcome: sqlfacade.OutcomeCommitted})
	}

	close(pub.block)
	e.Close()

	require.Contains(t, buf.String(), "transaction event dropped")
	require.Less(t, len(pub.messages), total)
	require.GreaterOrEqual(t, len(pub.messages), eventQueueSize)
}

func TestEvents_WithFacade(t *testing.T) {
	pub := &fakePublisher{}
	events := NewEvents(pub, mqtt.Topics{Prefix: "it"}, nil)
	w := &fakeWriter{}

	f := sqlfacade.New(database.Config{}, sqlfacade.WithObserver(Multi{events, NewMetrics(w)}))
	require.NoError(t, f.Connect(t.Context(), filepath.Join(t.TempDir(), "observer.db")))
	defer f.Close() //nolint:errcheck // Test cleanup

	require.NoError(t, f.Execute(t.Context(), "CREATE TABLE friends (id TEXT PRIMARY KEY, name TEXT)", nil))
	err := f.ExecuteWithTransaction(t.Context(),
		"INSERT INTO friends (id, name) VALUES (?, ?)",
		[][]sqlfacade.Value{sqlfacade.Texts("1", "John"), {sqlfacade.Text("2"), sqlfacade.Integer(2)}},
	)
	require.ErrorIs(t, err, sqlfacade.ErrBinding)
	events.Close()

	require.Len(t, pub.messages, 1)
	require.Equal(t, "it/transaction/rolled_back", pub.messages[0].topic)
	require.Len(t, w.transactions, 1)
	require.Equal(t, "rolled_back", w.transactions[0].Outcome)
	// CREATE TABLE plus the failed batch.
	require.Len(t, w.statements, 2)
	require.True(t, w.statements[1].Failed)
}
