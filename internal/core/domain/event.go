package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type EventKind string

const (
	EventInit                 EventKind = "init"
	EventProductStart         EventKind = "product_start"
	EventModelTrying          EventKind = "model_trying"
	EventModelSuccess         EventKind = "model_success"
	EventAIResponse           EventKind = "ai_response"
	EventParsedClassification EventKind = "parsed_classification"
	EventOptimizationPause    EventKind = "optimization_pause"
	EventProgress             EventKind = "progress"
	EventResult               EventKind = "result"
	EventComplete             EventKind = "complete"
	EventError                EventKind = "error"
	EventStopped              EventKind = "stopped"
)

// ProgressEvent is one decoded frame of the classification stream. The Kind
// tag discriminates which payload fields are meaningful; all kinds share the
// one struct so decoding stays a single unmarshal.
type ProgressEvent struct {
	Kind  EventKind `json:"type"`
	JobID string    `json:"job_id,omitempty"`

	Message string `json:"message,omitempty"`

	// product_start / progress
	Percentage  float64 `json:"percentage,omitempty"`
	Current     int     `json:"current,omitempty"`
	Total       int     `json:"total,omitempty"`
	ProductName string  `json:"product_name,omitempty"`
	Step        string  `json:"step,omitempty"`

	// model_trying / model_success
	Model string `json:"model,omitempty"`

	// ai_response
	Think    string `json:"think,omitempty"`
	Response string `json:"response,omitempty"`

	// parsed_classification / result
	Product *Product `json:"product,omitempty"`

	// progress / complete
	ModelStats map[string]int `json:"model_stats,omitempty"`

	// complete
	Products   []Product `json:"products,omitempty"`
	Successful int       `json:"successful,omitempty"`
	Failed     int       `json:"failed,omitempty"`

	// error
	Error string `json:"error,omitempty"`
}

// Known reports whether the kind is part of the wire vocabulary. Metrics
// label servers' novel kinds as one bucket so the cardinality stays bounded.
func (k EventKind) Known() bool {
	switch k {
	case EventInit, EventProductStart, EventModelTrying, EventModelSuccess,
		EventAIResponse, EventParsedClassification, EventOptimizationPause,
		EventProgress, EventResult, EventComplete, EventError, EventStopped:
		return true
	}
	return false
}

// Terminal reports whether this frame ends the job. A mid-stream error frame
// is not terminal; the transport marks the closing error frame explicitly.
func (e ProgressEvent) Terminal() bool {
	return e.Kind == EventComplete || e.Kind == EventStopped
}

// DecodeProgressEvent parses one stream frame. Frames without a type tag are
// rejected; unknown type tags decode fine and are left to the interpreter to
// log and skip.
func DecodeProgressEvent(data []byte) (ProgressEvent, error) {
	var event ProgressEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return ProgressEvent{}, WrapError(ErrTransport, "decode stream frame", err)
	}
	if strings.TrimSpace(string(event.Kind)) == "" {
		return ProgressEvent{}, WrapError(ErrTransport, "decode stream frame", fmt.Errorf("frame missing type tag"))
	}
	return event, nil
}
