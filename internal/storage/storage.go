// Package storage persists book records and sources ingestion candidates.
package storage

import (
	"context"

	"github.com/hyperjump/bookworm/internal/models"
)

// BookStore defines book persistence operations.
type BookStore interface {
	// InsertBook stores b and sets its ID and CreatedAt.
	InsertBook(ctx context.Context, b *models.Book) error
	// InsertBooks stores all books in one transaction, setting IDs in order.
	InsertBooks(ctx context.Context, books []*models.Book) error
	// GetBook returns models.ErrNotFound when no book has id.
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	ListBooks(ctx context.Context, offset, limit int) ([]*models.Book, error)

	// SelectCandidates returns books on q.Shelf rated above q.MinRating, best rated first.
	SelectCandidates(ctx context.Context, q models.CandidateQuery) ([]*models.Book, error)
	CountCandidates(ctx context.Context, q models.CandidateQuery) (int64, error)

	CountBooks(ctx context.Context) (int64, error)
	Close() error
}
