// Package messages defines the engine's internal conversation record, the
// model-facing multi-part wire representation, and the bidirectional
// conversion between them.
package messages

import (
	"time"
)

// Role identifies the author of an internal message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is the internal conversation record. Messages are immutable once
// appended; ordering is insertion order and duplicate content is legal.
type Message struct {
	Role      Role                   `json:"role"`
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewMessage creates a message stamped at the current time.
func NewMessage(role Role, content string, metadata map[string]interface{}) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
