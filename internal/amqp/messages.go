package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entity names carried in change messages.
const (
	EntityItem       = "ledger_item"
	EntityInstrument = "payment_instrument"
	EntitySettings   = "trip_settings"
)

// Operation names carried in change messages.
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
	OperationCommit = "commit"
)

// LedgerChangeMessage announces that a trip's ledger changed. It carries
// ids only; consumers read current state from the store.
type LedgerChangeMessage struct {
	TripID    string    `json:"trip_id"`
	Entity    string    `json:"entity"`
	Operation string    `json:"operation"`
	EntityID  string    `json:"entity_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerChangeMessage creates a change message stamped with the current time.
func NewLedgerChangeMessage(tripID, entity, operation, entityID string) *LedgerChangeMessage {
	return &LedgerChangeMessage{
		TripID:    tripID,
		Entity:    entity,
		Operation: operation,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangeMessageFromJSON decodes and checks a message body.
func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.TripID == "" {
		return nil, fmt.Errorf("message without trip_id")
	}
	return &msg, nil
}
