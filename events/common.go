package events

import (
	"encoding/json"
	"errors"
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// ErrMalformed is returned when an inbound payload is not a valid event.
var ErrMalformed = errors.New("events: malformed payload")

type BaseEvent struct {
	EventID string `json:"event_id,omitempty"`
	Type    string `json:"type"`
}

func NewBaseEvent(eventType string) BaseEvent {
	id, err := nanoid.New()
	if err != nil {
		panic(err)
	}
	return BaseEvent{
		EventID: id,
		Type:    eventType,
	}
}

func (e BaseEvent) EventType() string { return e.Type }

func Parse[T any](data []byte) (*T, error) {
	var x T
	if err := json.Unmarshal(data, &x); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return &x, nil
}
