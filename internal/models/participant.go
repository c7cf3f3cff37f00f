package models

import "github.com/google/uuid"

// Participant represents a joined student session tracked for roster and answer purposes.
// ConnectionID is a back-reference to the WebSocket connection, not ownership.
type Participant struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ConnectionID string    `json:"connection_id"`
	HasAnswered  bool      `json:"has_answered"`
}
