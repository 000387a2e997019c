package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names what happened to a receipt.
type EventType string

const (
	EventReceiptCreated EventType = "receipt.created"
	EventReceiptDeleted EventType = "receipt.deleted"
)

// ReceiptEvent is a lightweight notification; consumers load the receipt themselves.
// Deleted events carry the fields needed to clean up mirrors after the row is gone.
type ReceiptEvent struct {
	Type      EventType `json:"type"`
	ReceiptID int64     `json:"receipt_id"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReceiptEvent(t EventType, receiptID, userID int64) *ReceiptEvent {
	return &ReceiptEvent{
		Type:      t,
		ReceiptID: receiptID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ReceiptEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReceiptEventFromJSON decodes and checks an event body.
func ReceiptEventFromJSON(data []byte) (*ReceiptEvent, error) {
	var msg ReceiptEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type != EventReceiptCreated && msg.Type != EventReceiptDeleted {
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.ReceiptID <= 0 {
		return nil, fmt.Errorf("event without receipt id")
	}
	return &msg, nil
}
