package models

import (
	"strconv"
)

// Placeholders used when a matched entry lacks a display field.
const (
	UnknownTitle  = "Unknown Title"
	UnknownAuthor = "Unknown Author"
	UnknownRating = "N/A"
)

// BookSummary is a similarity hit rendered for display.
type BookSummary struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	AvgRating  string  `json:"avg_rating"`
	Similarity float64 `json:"similarity"`
}

// HasTitle reports whether the summary carries a real title rather than the placeholder.
func (s *BookSummary) HasTitle() bool {
	return s.Title != "" && s.Title != UnknownTitle
}

// SummaryFromResult maps a query result to a BookSummary, substituting placeholders for
// missing or empty metadata fields.
func SummaryFromResult(r QueryResult) BookSummary {
	return BookSummary{
		ID:         r.ID,
		Title:      metadataString(r.Metadata, MetaTitle, UnknownTitle),
		Author:     metadataString(r.Metadata, MetaAuthor, UnknownAuthor),
		AvgRating:  metadataString(r.Metadata, MetaAvgRating, UnknownRating),
		Similarity: r.Score,
	}
}

func metadataString(m map[string]any, key, fallback string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return fallback
	}
	switch x := v.(type) {
	case string:
		if x == "" {
			return fallback
		}
		return x
	case float64:
		if x == 0 {
			return fallback
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		if x == 0 {
			return fallback
		}
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		if x == 0 {
			return fallback
		}
		return strconv.Itoa(x)
	case int64:
		if x == 0 {
			return fallback
		}
		return strconv.FormatInt(x, 10)
	default:
		return fallback
	}
}

// Recommendation is the response of the retrieval pipeline.
type Recommendation struct {
	Query          string        `json:"query"`
	SimilarBooks   []BookSummary `json:"similar_books"`
	Recommendation string        `json:"recommendation"`
}
