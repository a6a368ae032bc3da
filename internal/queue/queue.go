// Package queue provides a durable FIFO work queue for population steps and a worker that drains it.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message asks a worker to run the population page starting at Cursor.
type Message struct {
	ID         string    `json:"id"`
	Cursor     string    `json:"cursor"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewMessage returns a first-attempt message for cursor.
func NewMessage(cursor string) *Message {
	return &Message{
		ID:         uuid.NewString(),
		Cursor:     cursor,
		Attempt:    1,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Queue is a FIFO message queue. Receive removes and returns the oldest message,
// or nil when the queue is empty.
type Queue interface {
	Send(ctx context.Context, msg *Message) error
	Receive(ctx context.Context) (*Message, error)
	Len(ctx context.Context) (int, error)
	Close() error
}
