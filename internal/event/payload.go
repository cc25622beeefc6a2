// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package event

import (
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// PAYLOAD
// =============================================================================

// Payload is the type-specific part of an event. The set of implementations
// is closed; fields() keeps it sealed to this package.
type Payload interface {
	Type() EventType
	Validate() error
	fields() map[string]any
}

// PageView records a page being shown.
type PageView struct {
	Path string `json:"path,omitempty"`
}

// ObservationView records an observation detail being opened.
type ObservationView struct {
	ObservationID   string `json:"observationId"`
	ObservationName string `json:"observationName"`
}

// Classification records a finished citizen-science classification.
type Classification struct {
	ProjectID   string  `json:"projectId"`
	ProjectName string  `json:"projectName"`
	TimeSpent   float64 `json:"timeSpent"` // seconds
}

// Search records a search query and how many results it produced.
type Search struct {
	Query       string `json:"query"`
	ResultCount int    `json:"resultCount"`
}

// FeatureUse records use of a named feature.
type FeatureUse struct {
	Feature string `json:"feature"`
	Action  string `json:"action"`
}

func (PageView) Type() EventType        { return TypePageView }
func (ObservationView) Type() EventType { return TypeObservationView }
func (Classification) Type() EventType  { return TypeClassification }
func (Search) Type() EventType          { return TypeSearch }
func (FeatureUse) Type() EventType      { return TypeFeatureUse }

// =============================================================================
// VALIDATION
// =============================================================================

func (p PageView) Validate() error {
	if p.Path != "" && !strings.HasPrefix(p.Path, "/") {
		return fmt.Errorf("%w: page_view path %q must start with /", ErrInvalidEvent, p.Path)
	}
	return nil
}

func (p ObservationView) Validate() error {
	if strings.TrimSpace(p.ObservationID) == "" {
		return fmt.Errorf("%w: observation_view requires observationId", ErrInvalidEvent)
	}
	return nil
}

func (p Classification) Validate() error {
	if strings.TrimSpace(p.ProjectID) == "" {
		return fmt.Errorf("%w: classification_complete requires projectId", ErrInvalidEvent)
	}
	if p.TimeSpent < 0 {
		return fmt.Errorf("%w: negative timeSpent %v", ErrInvalidEvent, p.TimeSpent)
	}
	return nil
}

func (p Search) Validate() error {
	if strings.TrimSpace(p.Query) == "" {
		return fmt.Errorf("%w: search requires query", ErrInvalidEvent)
	}
	if p.ResultCount < 0 {
		return fmt.Errorf("%w: negative resultCount %d", ErrInvalidEvent, p.ResultCount)
	}
	return nil
}

func (p FeatureUse) Validate() error {
	if strings.TrimSpace(p.Feature) == "" || strings.TrimSpace(p.Action) == "" {
		return fmt.Errorf("%w: feature_use requires feature and action", ErrInvalidEvent)
	}
	return nil
}

// =============================================================================
// FLATTENING
// =============================================================================

func (p PageView) fields() map[string]any {
	if p.Path == "" {
		return map[string]any{}
	}
	return map[string]any{"path": p.Path}
}

func (p ObservationView) fields() map[string]any {
	return map[string]any{
		"observationId":   p.ObservationID,
		"observationName": p.ObservationName,
	}
}

func (p Classification) fields() map[string]any {
	return map[string]any{
		"projectId":   p.ProjectID,
		"projectName": p.ProjectName,
		"timeSpent":   p.TimeSpent,
	}
}

func (p Search) fields() map[string]any {
	return map[string]any{
		"query":       p.Query,
		"resultCount": p.ResultCount,
	}
}

func (p FeatureUse) fields() map[string]any {
	return map[string]any{
		"feature": p.Feature,
		"action":  p.Action,
	}
}

// =============================================================================
// LOOSE INPUT
// =============================================================================

// PayloadFromMap builds a typed payload from a loosely-typed mapping, as
// received from JSON lines or other untyped callers. Values must be
// primitives (string, number, bool); keys the payload does not know are
// ignored.
func PayloadFromMap(eventType string, data map[string]any) (Payload, error) {
	t, err := ParseType(eventType)
	if err != nil {
		return nil, err
	}
	for k, v := range data {
		if !isPrimitive(v) {
			return nil, fmt.Errorf("%w: field %q is not a primitive (%T)", ErrInvalidEvent, k, v)
		}
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	p := newPayload(t)
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	payload := deref(p)
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return payload, nil
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return true
	}
	return false
}

// newPayload returns a pointer to a zero payload of type t, ready for
// json.Unmarshal. t must be valid.
func newPayload(t EventType) any {
	switch t {
	case TypePageView:
		return &PageView{}
	case TypeObservationView:
		return &ObservationView{}
	case TypeClassification:
		return &Classification{}
	case TypeSearch:
		return &Search{}
	default:
		return &FeatureUse{}
	}
}

func deref(p any) Payload {
	switch v := p.(type) {
	case *PageView:
		return *v
	case *ObservationView:
		return *v
	case *Classification:
		return *v
	case *Search:
		return *v
	case *FeatureUse:
		return *v
	}
	return nil
}
