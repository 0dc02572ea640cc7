package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType представляет тип события в шине
type EventType string

const (
	EventTypeOrderChanged      EventType = "order.changed"
	EventTypeOrdersRefreshed   EventType = "orders.refreshed"
	EventTypeOrdersFetchFailed EventType = "orders.fetch_failed"
)

// Event представляет событие, передаваемое через Kafka
type Event struct {
	ID        uuid.UUID              `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewEvent создает событие с новым идентификатором
func NewEvent(eventType EventType, data map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
