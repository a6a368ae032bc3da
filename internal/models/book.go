// Package models defines core data structures for books, index entries, and recommendations.
package models

import (
	"strconv"
	"strings"
	"time"
)

// Metadata keys copied from a Book into its index entry.
const (
	MetaTitle       = "title"
	MetaAuthor      = "author"
	MetaAvgRating   = "avg_rating"
	MetaBookshelves = "bookshelves"
	MetaText        = "text"
)

// Book is a stored text record. ID is assigned by the record store on insert.
type Book struct {
	ID          int64     `json:"id" db:"id"`
	Text        string    `json:"text" db:"text"`
	Title       string    `json:"title,omitempty" db:"title"`
	Author      string    `json:"author,omitempty" db:"author"`
	AvgRating   float64   `json:"avg_rating,omitempty" db:"avg_rating"`
	Bookshelves string    `json:"bookshelves,omitempty" db:"bookshelves"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// IndexID returns the identifier used for the book's entry in the similarity index.
func (b *Book) IndexID() string {
	return strconv.FormatInt(b.ID, 10)
}

// EmbeddingText returns the text that is embedded for this record: Text, or Title when Text is empty.
func (b *Book) EmbeddingText() string {
	if strings.TrimSpace(b.Text) != "" {
		return b.Text
	}
	return b.Title
}

// Metadata returns the record's attributes for storage alongside its vector.
// Empty strings and a zero rating are omitted so readers can apply their own placeholders.
func (b *Book) Metadata() map[string]any {
	meta := make(map[string]any, 5)
	if b.Title != "" {
		meta[MetaTitle] = b.Title
	}
	if b.Author != "" {
		meta[MetaAuthor] = b.Author
	}
	if b.AvgRating != 0 {
		meta[MetaAvgRating] = b.AvgRating
	}
	if b.Bookshelves != "" {
		meta[MetaBookshelves] = b.Bookshelves
	}
	if b.Text != "" {
		meta[MetaText] = b.Text
	}
	return meta
}

// BookInput is the request body for creating a book.
type BookInput struct {
	Text        string  `json:"text"`
	Title       string  `json:"title,omitempty"`
	Author      string  `json:"author,omitempty"`
	AvgRating   float64 `json:"avg_rating,omitempty"`
	Bookshelves string  `json:"bookshelves,omitempty"`
}

// Validate returns ErrValidation when the input has no text.
func (in *BookInput) Validate() error {
	if strings.TrimSpace(in.Text) == "" {
		return Validationf("missing text")
	}
	return nil
}

// Book converts the input to an unsaved Book.
func (in *BookInput) Book() *Book {
	return &Book{
		Text:        in.Text,
		Title:       in.Title,
		Author:      in.Author,
		AvgRating:   in.AvgRating,
		Bookshelves: in.Bookshelves,
	}
}

// CandidateQuery selects books for ingestion: Bookshelves contains Shelf, AvgRating is strictly
// greater than MinRating, ordered by rating descending (then ID), paged by Limit and Offset.
type CandidateQuery struct {
	Shelf     string  `json:"shelf" yaml:"shelf"`
	MinRating float64 `json:"min_rating" yaml:"min_rating"`
	Limit     int     `json:"limit" yaml:"limit"`
	Offset    int     `json:"offset" yaml:"offset"`
}
