package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record event actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// RecordEvent announces that a record changed. It carries only identifiers;
// the worker reads the current state from the database.
type RecordEvent struct {
	// QueueID is the sync_queue row written in the same request.
	QueueID   int64     `json:"queueId"`
	Resource  string    `json:"resource"`
	RecordID  string    `json:"recordId"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordEvent(queueID int64, resource, recordID, action string) *RecordEvent {
	return &RecordEvent{
		QueueID:   queueID,
		Resource:  resource,
		RecordID:  recordID,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
}

func (m *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordEventFromJSON decodes and checks a message body.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var msg RecordEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Resource == "" || msg.RecordID == "" {
		return nil, fmt.Errorf("record event missing resource or record id")
	}
	return &msg, nil
}
