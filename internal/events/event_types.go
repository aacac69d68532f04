package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nillzand/ehsan-meals/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionLoggedIn  EventType = "session.logged_in"
	EventSessionRenewed   EventType = "session.renewed"
	EventSessionExpired   EventType = "session.expired"
	EventSessionLoggedOut EventType = "session.logged_out"
	EventOrderPlaced      EventType = "order.placed"
	EventOrderCancelled   EventType = "order.cancelled"
	EventOrderRejected    EventType = "order.rejected"
)

// AllEventTypes lists every event type, in declaration order.
var AllEventTypes = []EventType{
	EventSessionLoggedIn,
	EventSessionRenewed,
	EventSessionExpired,
	EventSessionLoggedOut,
	EventOrderPlaced,
	EventOrderCancelled,
	EventOrderRejected,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     string      `json:"actor,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with an id and the current time.
func NewEvent(eventType EventType, actor string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// SessionPayload accompanies session.* events.
type SessionPayload struct {
	Role   domain.Role `json:"role,omitempty"`
	Reason string      `json:"reason,omitempty"`
}

// OrderPayload accompanies order.* events.
type OrderPayload struct {
	OrderID int64           `json:"order_id,omitempty"`
	MenuID  int64           `json:"menu_id,omitempty"`
	Date    domain.Date     `json:"date"`
	Cost    decimal.Decimal `json:"cost"`
	Reason  string          `json:"reason,omitempty"`
}
