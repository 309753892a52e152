package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Topic names for the two change-event streams.
const (
	TopicProductEvents = "product_events"
	TopicOrderEvents   = "order_events"
)

// Event types carried in the envelope's "type" field. Consumers reject
// anything outside this set.
const (
	EventProductCreated = "PRODUCT_CREATED"
	EventProductUpdated = "PRODUCT_UPDATED"
	EventProductDeleted = "PRODUCT_DELETED"
	EventOrderCreated   = "ORDER_CREATED"
	EventOrderUpdated   = "ORDER_UPDATED"
	EventOrderDeleted   = "ORDER_DELETED"
)

var knownEventTypes = map[string]struct{}{
	EventProductCreated: {},
	EventProductUpdated: {},
	EventProductDeleted: {},
	EventOrderCreated:   {},
	EventOrderUpdated:   {},
	EventOrderDeleted:   {},
}

// KnownEventType reports whether t belongs to the closed set of event types.
func KnownEventType(t string) bool {
	_, ok := knownEventTypes[t]
	return ok
}

// Event is the envelope for every change event on the wire. Type and Data are
// the core contract; the remaining fields carry delivery metadata used for
// deduplication and out-of-order protection.
type Event struct {
	EventID       string          `json:"event_id"`
	Type          string          `json:"type"`
	EntityID      string          `json:"entity_id"`
	Version       int64           `json:"version"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates an event with a generated ID and the current timestamp.
func NewEvent(eventType, entityID string, version int64, source string, data any) (*Event, error) {
	if !KnownEventType(eventType) {
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal event data: %w", err)
	}

	return &Event{
		EventID:   uuid.New().String(),
		Type:      eventType,
		EntityID:  entityID,
		Version:   version,
		EmittedAt: time.Now().UTC(),
		Source:    source,
		Data:      dataBytes,
	}, nil
}

// WithCorrelationID sets the correlation ID on the event.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// Marshal serializes the event to JSON bytes.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent deserializes an event from JSON bytes.
func UnmarshalEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// UnmarshalData deserializes the event data payload into the given target.
func (e *Event) UnmarshalData(target any) error {
	return json.Unmarshal(e.Data, target)
}
