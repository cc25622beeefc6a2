// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package event defines the analytics event model.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrUnknownType    = errors.New("unknown event type")
	ErrInvalidEvent   = errors.New("invalid event")
	ErrMissingContext = errors.New("missing context field")
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventType identifies the kind of user action an event records.
type EventType string

const (
	TypePageView        EventType = "page_view"
	TypeObservationView EventType = "observation_view"
	TypeClassification  EventType = "classification_complete"
	TypeSearch          EventType = "search"
	TypeFeatureUse      EventType = "feature_use"
)

// Types lists every valid event type.
var Types = []EventType{
	TypePageView,
	TypeObservationView,
	TypeClassification,
	TypeSearch,
	TypeFeatureUse,
}

// String returns the string representation of EventType
func (t EventType) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the known types
func (t EventType) IsValid() bool {
	switch t {
	case TypePageView, TypeObservationView, TypeClassification, TypeSearch, TypeFeatureUse:
		return true
	}
	return false
}

// ParseType converts a string into an EventType.
func ParseType(s string) (EventType, error) {
	t := EventType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return t, nil
}

// =============================================================================
// EVENT
// =============================================================================

// TimestampLayout is the ISO-8601 form used for exported timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Event is one immutable analytics record.
type Event struct {
	// ID is assigned by the store; zero until persisted.
	ID        int64
	Timestamp time.Time
	SessionID string
	Payload   Payload
	Context   Context
}

// New validates the inputs and builds an event stamped at now.
func New(p Payload, c Context, sessionID string, now time.Time) (Event, error) {
	if p == nil {
		return Event{}, fmt.Errorf("%w: nil payload", ErrInvalidEvent)
	}
	if !p.Type().IsValid() {
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownType, p.Type())
	}
	if sessionID == "" {
		return Event{}, fmt.Errorf("%w: empty session id", ErrInvalidEvent)
	}
	if now.IsZero() {
		return Event{}, fmt.Errorf("%w: zero timestamp", ErrInvalidEvent)
	}
	if err := c.Validate(); err != nil {
		return Event{}, err
	}
	if err := p.Validate(); err != nil {
		return Event{}, err
	}

	return Event{
		Timestamp: now.UTC().Truncate(time.Millisecond),
		SessionID: sessionID,
		Payload:   p,
		Context:   c,
	}, nil
}

// Type returns the payload's event type.
func (e Event) Type() EventType {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Type()
}

// Data flattens the context envelope and payload into one primitive map.
// Payload keys win over context keys (page_view's path overrides the
// envelope path).
func (e Event) Data() map[string]any {
	data := e.Context.fields()
	if e.Payload != nil {
		for k, v := range e.Payload.fields() {
			data[k] = v
		}
	}
	return data
}

// eventJSON is the exported wire shape.
type eventJSON struct {
	ID        int64          `json:"id"`
	EventType EventType      `json:"eventType"`
	Timestamp string         `json:"timestamp"`
	SessionID string         `json:"sessionId"`
	Data      map[string]any `json:"data"`
}

// MarshalJSON renders the event as {id, eventType, timestamp, sessionId, data}.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{
		ID:        e.ID,
		EventType: e.Type(),
		Timestamp: e.Timestamp.UTC().Format(TimestampLayout),
		SessionID: e.SessionID,
		Data:      e.Data(),
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (e *Event) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID        int64           `json:"id"`
		EventType string          `json:"eventType"`
		Timestamp time.Time       `json:"timestamp"`
		SessionID string          `json:"sessionId"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	decoded, err := Decode(raw.EventType, raw.Data)
	if err != nil {
		return err
	}
	decoded.ID = raw.ID
	decoded.Timestamp = raw.Timestamp.UTC()
	decoded.SessionID = raw.SessionID
	*e = decoded
	return nil
}

// Decode rebuilds the typed payload and context from a stored data blob.
// The blob is the JSON form of Data(); both the envelope and the payload read
// their own keys from it.
func Decode(eventType string, data []byte) (Event, error) {
	t, err := ParseType(eventType)
	if err != nil {
		return Event{}, err
	}
	if len(data) == 0 {
		data = []byte("{}")
	}

	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		return Event{}, fmt.Errorf("%w: context: %v", ErrInvalidEvent, err)
	}

	p := newPayload(t)
	if err := json.Unmarshal(data, p); err != nil {
		return Event{}, fmt.Errorf("%w: payload: %v", ErrInvalidEvent, err)
	}

	return Event{Payload: deref(p), Context: c}, nil
}
