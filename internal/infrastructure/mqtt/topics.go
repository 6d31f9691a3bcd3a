package mqtt

import "strings"

// DefaultTopicPrefix is used when Topics has no prefix.
const DefaultTopicPrefix = "sqlfacade"

// Topics provides builders for façade MQTT topics under a common prefix.
//
//	topics := mqtt.Topics{Prefix: "sqlfacade"}
//	topics.Transaction("rolled_back")
//	// Returns: "sqlfacade/transaction/rolled_back"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	p := strings.TrimRight(t.Prefix, "/")
	if p == "" {
		return DefaultTopicPrefix
	}
	return p
}

// Transaction returns the topic for a transaction outcome.
//
// Example: sqlfacade/transaction/committed
func (t Topics) Transaction(outcome string) string {
	return t.prefix() + "/transaction/" + outcome
}

// AllTransactions returns a wildcard topic matching every transaction outcome.
//
// Example: sqlfacade/transaction/+
func (t Topics) AllTransactions() string {
	return t.prefix() + "/transaction/+"
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: sqlfacade/system/status
func (t Topics) SystemStatus() string {
	return t.prefix() + "/system/status"
}
