package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyperjump/bookworm/internal/models"
)

// Goodreads library export column names.
const (
	ColumnTitle         = "Title"
	ColumnAuthor        = "Author"
	ColumnAverageRating = "Average Rating"
	ColumnBookshelves   = "Bookshelves"
)

// ParseGoodreadsCSV reads a Goodreads library export. Columns are located by header name; only
// Title is required. Each book's Text is its title. Rows with an empty title are skipped.
func ParseGoodreadsCSV(r io.Reader) ([]*models.Book, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, models.Validationf("empty csv")
	}
	if err != nil {
		return nil, models.Validationf("read csv header: %v", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	if _, ok := cols[ColumnTitle]; !ok {
		return nil, models.Validationf("csv has no %q column", ColumnTitle)
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var books []*models.Book
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, models.Validationf("line %d: %v", line, err)
		}
		title := field(record, ColumnTitle)
		if title == "" {
			continue
		}
		var rating float64
		if raw := field(record, ColumnAverageRating); raw != "" {
			rating, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, models.Validationf("line %d: invalid %s %q", line, ColumnAverageRating, raw)
			}
		}
		books = append(books, &models.Book{
			Text:        title,
			Title:       title,
			Author:      field(record, ColumnAuthor),
			AvgRating:   rating,
			Bookshelves: field(record, ColumnBookshelves),
		})
	}
	return books, nil
}

// ImportGoodreadsCSV parses r and inserts every book into store in one transaction.
// The returned books carry their assigned IDs.
func ImportGoodreadsCSV(ctx context.Context, r io.Reader, store BookStore) ([]*models.Book, error) {
	books, err := ParseGoodreadsCSV(r)
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return books, nil
	}
	if err := store.InsertBooks(ctx, books); err != nil {
		return nil, fmt.Errorf("import %d books: %w", len(books), err)
	}
	return books, nil
}
