package chat

import (
	"time"

	"github.com/google/uuid"
)

// Roles a transcript message can carry.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn entry in a conversation transcript.
// Transcripts are append-only; a message is never mutated after creation.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps a fresh message with an id and creation time.
func NewMessage(role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}
