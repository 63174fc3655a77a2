// Package message defines the dispatch message routed through the state tree.
package message

import (
	"time"

	"github.com/google/uuid"
)

// TypeKey is the payload field that carries the action type in map payloads.
// Default initiators and reducers never copy it.
const TypeKey = "type"

// Message is a dispatched intent tagged with an action type.
// Messages are values: every With* helper returns a modified copy.
type Message struct {
	// ID is a unique identifier for this message instance.
	ID string

	// Type is the action type identifier (e.g., "cart/add").
	Type string

	// Payload contains the action-specific data.
	Payload any

	// Timestamp is when the message was created.
	Timestamp time.Time

	// Source identifies what produced the message (an action, a replay log, ...).
	Source string
}

// New creates a message with a fresh ID.
func New(actionType string, payload any) Message {
	return Message{
		ID:        uuid.New().String(),
		Type:      actionType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// WithType returns a copy of the message tagged with actionType.
func (m Message) WithType(actionType string) Message {
	m.Type = actionType
	return m
}

// WithSource returns a copy of the message with the source set.
func (m Message) WithSource(source string) Message {
	m.Source = source
	return m
}

// Fields returns the payload as a field map.
// The second result is false when the payload is not a map.
func (m Message) Fields() (map[string]any, bool) {
	fields, ok := m.Payload.(map[string]any)
	return fields, ok
}

// Field returns a single payload field.
func (m Message) Field(key string) (any, bool) {
	fields, ok := m.Fields()
	if !ok {
		return nil, false
	}
	v, ok := fields[key]
	return v, ok
}
