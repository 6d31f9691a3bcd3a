package observer

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-sqlfacade/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-sqlfacade/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-sqlfacade/internal/sqlfacade"
)

// eventQueueSize bounds transaction events waiting for the broker.
const eventQueueSize = 64

// Publisher sends one message. *mqtt.Client satisfies it.
type Publisher interface {
	PublishEvent(topic string, payload []byte) error
}

// TransactionMessage is the JSON payload published for each transaction.
// Error holds the failure category, never the error text, so statement
// parameters stay out of the payload.
type TransactionMessage struct {
	ID         string  `json:"id"`
	Outcome    string  `json:"outcome"`
	Query      string  `json:"query"`
	DurationMS float64 `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
	Timestamp  string  `json:"timestamp"`
}

type outgoing struct {
	topic   string
	payload []byte
}

// Events publishes transaction outcomes to <prefix>/transaction/<outcome>.
//
// Publishing happens on a background goroutine so a slow broker never
// stalls the façade. When the queue is full new events are dropped and
// logged. Statement events are ignored.
type Events struct {
	pub    Publisher
	topics mqtt.Topics
	logger *logging.Logger

	queue chan outgoing
	done  chan struct{}
	once  sync.Once
}

// NewEvents starts an Events observer. Call Close to drain and stop it.
func NewEvents(pub Publisher, topics mqtt.Topics, logger *logging.Logger) *Events {
	if logger == nil {
		logger = logging.Discard()
	}

	e := &Events{
		pub:    pub,
		topics: topics,
		logger: logger,
		queue:  make(chan outgoing, eventQueueSize),
		done:   make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *Events) run() {
	defer close(e.done)
	for msg := range e.queue {
		if err := e.pub.PublishEvent(msg.topic, msg.payload); err != nil {
			e.logger.Warn("transaction event not published", "topic", msg.topic, "error", err)
		}
	}
}

// ObserveStatement implements sqlfacade.Observer.
func (e *Events) ObserveStatement(sqlfacade.StatementEvent) {}

// ObserveTransaction implements sqlfacade.Observer.
func (e *Events) ObserveTransaction(ev sqlfacade.TransactionEvent) {
	payload, err := json.Marshal(newTransactionMessage(ev, time.Now()))
	if err != nil {
		e.logger.Warn("transaction event not encoded", "error", err)
		return
	}

	msg := outgoing{topic: e.topics.Transaction(string(ev.Outcome)), payload: payload}
	select {
	case e.queue <- msg:
	default:
		e.logger.Warn("transaction event dropped, queue full", "topic", msg.topic)
	}
}

// Close stops accepting events and waits for queued ones to be published.
// It must not race with ObserveTransaction.
func (e *Events) Close() {
	e.once.Do(func() {
		close(e.queue)
	})
	<-e.done
}

func newTransactionMessage(ev sqlfacade.TransactionEvent, at time.Time) TransactionMessage {
	msg := TransactionMessage{
		ID:         uuid.NewString(),
		Outcome:    string(ev.Outcome),
		Query:      ev.Query,
		DurationMS: float64(ev.Duration) / float64(time.Millisecond),
		Timestamp:  at.UTC().Format(time.RFC3339),
	}
	msg.Error = errorCategory(ev.Err)
	return msg
}
