// Package keyword provides full-text search over the book catalog.
package keyword

import (
	"context"

	"github.com/hyperjump/bookworm/internal/models"
)

// Catalog defines keyword indexing and search over stored books.
type Catalog interface {
	Index(ctx context.Context, b *models.Book) error
	Search(ctx context.Context, query string, limit int) ([]*CatalogHit, error)
	Delete(ctx context.Context, id int64) error
	// DocCount returns the total number of books in the index.
	DocCount() (uint64, error)
	Close() error
}

// CatalogHit is a single keyword search hit.
type CatalogHit struct {
	ID     int64   `json:"id"`
	Score  float64 `json:"score"`
	Title  string  `json:"title,omitempty"`
	Author string  `json:"author,omitempty"`
}
