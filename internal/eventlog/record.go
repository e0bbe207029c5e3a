package eventlog

import (
	"github.com/google/uuid"
)

// Category classifies an event record for display and filtering.
type Category string

const (
	// CategorySystem covers observer startup, shutdown, and restore events
	CategorySystem Category = "system"
	// CategoryAPI covers host API discovery and registration events
	CategoryAPI Category = "api"
	// CategoryLifecycle covers host lifecycle hook firings
	CategoryLifecycle Category = "lifecycle"
	// CategoryTransition covers accepted state machine transitions
	CategoryTransition Category = "transition"
	// CategoryUserAction covers observed user intents (e.g. "load save X")
	CategoryUserAction Category = "user_action"
	// CategoryContext covers screen/mode changes reported by the context probe
	CategoryContext Category = "context"
	// CategoryError covers invalid transitions, cadence anomalies, and mismatches
	CategoryError Category = "error"
	// CategoryInfo covers informational events that fit no other category
	CategoryInfo Category = "info"
)

// Record is a single immutable entry in the event log.
// Once appended it is never mutated; readers receive copies.
type Record struct {
	// ID is the unique identifier for this record
	ID string `json:"id"`
	// RelativeMs is milliseconds since the observer started
	RelativeMs int64 `json:"relative_ms"`
	// Message is a human-readable description of the event
	Message string `json:"message"`
	// Category classifies the event
	Category Category `json:"category"`
	// IsError marks records produced by anomaly and failure paths
	IsError bool `json:"is_error"`
	// State is the lifecycle state at the moment of emission
	State string `json:"state"`
	// Context is the probe context at the moment of emission
	Context string `json:"context"`
}

// NewRecord creates a record with a fresh ID. The caller supplies the
// relative timestamp so that all records in one reaction share a clock read.
func NewRecord(relativeMs int64, category Category, isError bool, state, context, message string) Record {
	return Record{
		ID:         uuid.New().String(),
		RelativeMs: relativeMs,
		Message:    message,
		Category:   category,
		IsError:    isError,
		State:      state,
		Context:    context,
	}
}
