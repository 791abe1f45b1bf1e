package model

import "time"

// APIResponse is a generic wrapper for API responses.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error API response.
func NewErrorResponse[T any](errMsg string) APIResponse[T] {
	return APIResponse[T]{
		Success: false,
		Error:   errMsg,
	}
}

// ErrorResponse represents an error response structure.
// Fields carries per-field messages for rejected drafts.
type ErrorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// WebSocketMessage represents a message sent over WebSocket connection.
type WebSocketMessage struct {
	Type       string    `json:"type"`
	Collection string    `json:"collection,omitempty"`
	Records    any       `json:"records,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// WebSocket message types.
const (
	WSMessageTypeSnapshot = "snapshot"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
	WSMessageTypeError    = "error"
)

// NewSnapshotMessage creates a message carrying the full current record list
// of a collection.
func NewSnapshotMessage(collection string, records any, readErr string) WebSocketMessage {
	return WebSocketMessage{
		Type:       WSMessageTypeSnapshot,
		Collection: collection,
		Records:    records,
		Error:      readErr,
		Timestamp:  time.Now().UTC(),
	}
}
