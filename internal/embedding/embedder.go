// Package embedding turns text into vectors through an OpenAI-compatible embedding API,
// with a deterministic mock and an LRU caching decorator.
package embedding

import "context"

// Embedder produces vector embeddings for text.
// EmbedBatch returns exactly one vector per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
}
