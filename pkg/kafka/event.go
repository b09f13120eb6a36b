package kafka

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is the newest envelope layout this package reads and the
// one it writes.
const EnvelopeVersion = 1

// metadataActor names the user whose request produced the event.
const metadataActor = "actor"

// Event is the envelope every message on the bus is wrapped in.
type Event struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	Version       int               `json:"version"`
	Timestamp     time.Time         `json:"timestamp"`
	Source        string            `json:"source"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewEvent wraps data in a fresh envelope stamped with the current UTC time.
func NewEvent(eventType, aggregateID, aggregateType, source string, data any) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       EnvelopeVersion,
		Timestamp:     time.Now().UTC(),
		Source:        source,
		Data:          payload,
	}, nil
}

// WithCorrelationID sets the correlation ID and returns e for chaining.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// WithActor records the requesting user. An empty id is ignored.
func (e *Event) WithActor(userID string) *Event {
	if userID == "" {
		return e
	}
	if e.Metadata == nil {
		e.Metadata = make(map[string]string, 1)
	}
	e.Metadata[metadataActor] = userID
	return e
}

// Actor returns the requesting user, if any.
func (e *Event) Actor() string {
	return e.Metadata[metadataActor]
}

// Marshal serializes the event to JSON.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Validate rejects envelopes a handler cannot act on.
func (e *Event) Validate() error {
	switch {
	case e.EventType == "":
		return errors.New("event envelope missing event_type")
	case e.EventID == "":
		return fmt.Errorf("%s envelope missing event_id", e.EventType)
	case e.Version > EnvelopeVersion:
		return fmt.Errorf("%s envelope version %d is newer than %d", e.EventType, e.Version, EnvelopeVersion)
	}
	return nil
}

// UnmarshalEvent decodes and validates an envelope.
func UnmarshalEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return &event, nil
}

// UnmarshalData decodes the payload into target. A missing or null payload
// is an error.
func (e *Event) UnmarshalData(target any) error {
	if len(e.Data) == 0 || bytes.Equal(bytes.TrimSpace(e.Data), []byte("null")) {
		return fmt.Errorf("%s event %s carries no data", e.EventType, e.EventID)
	}
	return json.Unmarshal(e.Data, target)
}
