package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tracker/internal/core"
	"tracker/internal/tables"

	"github.com/google/uuid"
)

// TableAppendedMessage announces rows appended to one table. Consumers
// replay Rows in order; ID lets them recognise redeliveries.
type TableAppendedMessage struct {
	ID        uuid.UUID  `json:"id"`
	Table     string     `json:"table"`
	Rows      []core.Row `json:"rows"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewTableAppendedMessage(table string, rows []core.Row) *TableAppendedMessage {
	return &TableAppendedMessage{
		ID:        uuid.New(),
		Table:     table,
		Rows:      append([]core.Row(nil), rows...),
		Timestamp: time.Now().UTC(),
	}
}

func (m *TableAppendedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate rejects messages no consumer can apply.
func (m *TableAppendedMessage) Validate() error {
	if m.ID == uuid.Nil {
		return errors.New("message id is required")
	}
	if err := tables.ValidateName(m.Table); err != nil {
		return err
	}
	if len(m.Rows) == 0 {
		return errors.New("message carries no rows")
	}
	return nil
}

// TableAppendedMessageFromJSON decodes and validates a message body.
func TableAppendedMessageFromJSON(data []byte) (*TableAppendedMessage, error) {
	var msg TableAppendedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	return &msg, nil
}
