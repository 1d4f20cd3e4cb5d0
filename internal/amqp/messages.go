package amqp

import (
	"encoding/json"
	"time"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/ingest"
)

// ImportCompletedMessage notifies downstream consumers that a CSV import
// finished. It carries the full report so consumers need no follow-up
// queries.
type ImportCompletedMessage struct {
	Report    ingest.Report `json:"report"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewImportCompletedMessage(report ingest.Report) *ImportCompletedMessage {
	return &ImportCompletedMessage{
		Report:    report,
		Timestamp: time.Now(),
	}
}

func (m *ImportCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ImportCompletedMessageFromJSON(data []byte) (*ImportCompletedMessage, error) {
	var msg ImportCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
