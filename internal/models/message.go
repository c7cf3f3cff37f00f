package models

import (
	"time"

	"github.com/google/uuid"
)

// SenderKind identifies which side of the classroom a chat message came from.
type SenderKind string

const (
	SenderTeacher SenderKind = "teacher"
	SenderStudent SenderKind = "student"
)

// ChatMessage is a single entry in the append-only classroom chat feed.
type ChatMessage struct {
	ID         uuid.UUID  `json:"id"`
	Sender     string     `json:"sender"`
	SenderKind SenderKind `json:"sender_kind"`
	Body       string     `json:"body"`
	Timestamp  time.Time  `json:"timestamp"`
}
