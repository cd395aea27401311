package walletevent

import (
	"encoding/json"
)

// EventType type for event types.
type EventType string

// Event is a type for bridge session events published on the service feed.
type Event struct {
	Type    EventType       `json:"type"`
	Message string          `json:"message,omitempty"`
	At      int64           `json:"at"`
	ChainID uint64          `json:"chainId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
