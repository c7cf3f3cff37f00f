package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/classpulse/backend/internal/models"
)

// Log is the append-only classroom chat feed. Messages are never mutated or
// evicted; they live for the process lifetime.
type Log struct {
	mu       sync.RWMutex
	messages []models.ChatMessage
}

// NewLog creates an empty chat log.
func NewLog() *Log {
	return &Log{}
}

// Append records a message and returns it with id and timestamp filled in.
func (l *Log) Append(sender string, kind models.SenderKind, body string) models.ChatMessage {
	msg := models.ChatMessage{
		ID:         uuid.New(),
		Sender:     sender,
		SenderKind: kind,
		Body:       body,
		Timestamp:  time.Now(),
	}
	l.mu.Lock()
	l.messages = append(l.messages, msg)
	l.mu.Unlock()
	return msg
}

// List returns every message in post order.
func (l *Log) List() []models.ChatMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.ChatMessage, len(l.messages))
	copy(out, l.messages)
	return out
}
