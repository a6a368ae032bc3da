// Package generation produces text completions from a chat model.
package generation

import "context"

// Role of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Generator turns an ordered message list into a single text response.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}
