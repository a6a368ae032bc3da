// Package vector provides the similarity index and vector helpers.
package vector

import (
	"context"
	"fmt"

	"github.com/hyperjump/bookworm/internal/models"
)

// QueryOptions controls a similarity query.
type QueryOptions struct {
	TopK            int
	IncludeValues   bool
	IncludeMetadata bool
}

// Index stores fixed-dimension vectors under string IDs and answers nearest-neighbor queries.
// Upsert is all-or-nothing per call and replaces existing entries with the same ID.
type Index interface {
	Upsert(ctx context.Context, entries []models.IndexEntry) error
	Query(ctx context.Context, vector []float32, opts QueryOptions) ([]models.QueryResult, error)
	Dimensions() int
	Size() int
	Close() error
}

type entry struct {
	values   []float32
	metadata map[string]any
}

// maxIDLen bounds entry IDs so every stored entry fits a snapshot.
const maxIDLen = 1 << 10

// validateEntries checks every entry before any of them is applied.
func validateEntries(dimensions int, entries []models.IndexEntry) error {
	for i := range entries {
		if entries[i].ID == "" {
			return models.Validationf("entry %d: empty id", i)
		}
		if len(entries[i].ID) > maxIDLen {
			return models.Validationf("entry %d: id longer than %d bytes", i, maxIDLen)
		}
		if len(entries[i].Values) != dimensions {
			return fmt.Errorf("entry %s: %w", entries[i].ID,
				&models.DimensionError{Expected: dimensions, Actual: len(entries[i].Values)})
		}
	}
	return nil
}

func validateQuery(dimensions int, vector []float32, opts QueryOptions) error {
	if opts.TopK <= 0 {
		return models.Validationf("topK must be positive, got %d", opts.TopK)
	}
	if len(vector) != dimensions {
		return &models.DimensionError{Expected: dimensions, Actual: len(vector)}
	}
	return nil
}

func newEntry(e models.IndexEntry) entry {
	values := make([]float32, len(e.Values))
	copy(values, e.Values)
	return entry{values: values, metadata: copyMetadata(e.Metadata)}
}

func copyMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
