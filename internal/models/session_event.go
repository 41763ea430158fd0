package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
)

// SessionEvent is a row of the session event history.
// Every realtime event published for a session is recorded here when a
// database is configured.
type SessionEvent struct {
	ID        string      `json:"id" db:"event_id"`
	Token     string      `json:"token" db:"token"`
	EventType string      `json:"event_type" db:"event_type"`
	Payload   JSONPayload `json:"payload" db:"payload"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// NewSessionEvent creates a history row for an event about to be recorded.
func NewSessionEvent(token, eventType string, payload []byte) *SessionEvent {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	return &SessionEvent{
		ID:        uuid.New().String(),
		Token:     token,
		EventType: eventType,
		Payload:   JSONPayload(payload),
		CreatedAt: time.Now().UTC(),
	}
}

// TableName returns the database table name for the SessionEvent model.
func (e *SessionEvent) TableName() string {
	return constants.TableSessionEvents
}

// JSONPayload is a JSON document stored in a text column.
// It is emitted as raw JSON rather than as a quoted string.
type JSONPayload []byte

// Value implements driver.Valuer
func (p JSONPayload) Value() (driver.Value, error) {
	if len(p) == 0 {
		return "{}", nil
	}
	return string(p), nil
}

// Scan implements sql.Scanner
func (p *JSONPayload) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = JSONPayload("{}")
	case string:
		*p = JSONPayload(v)
	case []byte:
		*p = append(JSONPayload(nil), v...)
	default:
		return fmt.Errorf("cannot scan %T into JSONPayload", src)
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (p JSONPayload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(p) {
		return nil, fmt.Errorf("invalid JSON payload")
	}
	return p, nil
}
