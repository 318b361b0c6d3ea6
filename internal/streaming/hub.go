package streaming

import "context"

// StreamEvent is a real-time event emitted while a document is edited.
type StreamEvent struct {
	DocumentID string `json:"document_id"`
	SessionID  string `json:"session_id,omitempty"`
	EventType  string `json:"event_type"`
	Payload    any    `json:"payload,omitempty"`
}

// EventFilter specifies which events a subscriber wants to receive.
type EventFilter struct {
	DocumentID string   `json:"document_id,omitempty"`
	EventTypes []string `json:"event_types,omitempty"`
}

// EventHub provides pub/sub for preview and model events.
type EventHub interface {
	Publish(ctx context.Context, event StreamEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan StreamEvent, func(), error)
}
