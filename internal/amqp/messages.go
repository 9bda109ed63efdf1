package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ImportJobMessage carries a CSV import to the worker. The file travels in
// the message, so the worker needs no shared storage.
type ImportJobMessage struct {
	JobID       string    `json:"job_id"`
	Filename    string    `json:"filename,omitempty"`
	CSV         string    `json:"csv"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func NewImportJobMessage(filename, csv string) *ImportJobMessage {
	return &ImportJobMessage{
		JobID:       uuid.NewString(),
		Filename:    filename,
		CSV:         csv,
		SubmittedAt: time.Now(),
	}
}

func (m *ImportJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ImportJobMessageFromJSON(data []byte) (*ImportJobMessage, error) {
	var msg ImportJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EventAction names a change to the transaction collection.
type EventAction string

const (
	EventCreated  EventAction = "created"
	EventUpdated  EventAction = "updated"
	EventDeleted  EventAction = "deleted"
	EventImported EventAction = "imported"
)

// TransactionEventMessage announces a change. Count is set for imports,
// TransactionID for single-record changes.
type TransactionEventMessage struct {
	Action        EventAction `json:"action"`
	TransactionID string      `json:"transaction_id,omitempty"`
	Count         int         `json:"count,omitempty"`
	// Source identifies the publishing client.
	Source        string      `json:"source,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
}

func NewTransactionEvent(action EventAction, id string, count int) *TransactionEventMessage {
	return &TransactionEventMessage{
		Action:        action,
		TransactionID: id,
		Count:         count,
		Timestamp:     time.Now(),
	}
}

// RoutingKey is the key events are published under, e.g. "transactions.created".
func (m *TransactionEventMessage) RoutingKey() string {
	return "transactions." + string(m.Action)
}

func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionEventFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
