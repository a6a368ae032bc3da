// Package cli provides output helpers for the bookworm command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/bookworm/internal/keyword"
	"github.com/hyperjump/bookworm/internal/models"
	"github.com/hyperjump/bookworm/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: text, json)", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRecommendation writes a recommendation and its similar books to w.
func WriteRecommendation(w io.Writer, rec *models.Recommendation, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, rec)
	}
	fmt.Fprintf(w, "\nQuery: %s\n\n", rec.Query)
	if len(rec.SimilarBooks) == 0 {
		fmt.Fprintln(w, "No similar books found.")
	} else {
		fmt.Fprintf(w, "Similar books (%d):\n", len(rec.SimilarBooks))
		for i, b := range rec.SimilarBooks {
			fmt.Fprintf(w, "%2d. %s by %s (rating %s, similarity %.4f)\n",
				i+1, utils.Truncate(b.Title, 80), b.Author, b.AvgRating, b.Similarity)
		}
	}
	fmt.Fprintf(w, "\n%s\n", rec.Recommendation)
	return nil
}

// WritePopulateReport writes the counts of one population run to w.
func WritePopulateReport(w io.Writer, r *models.PopulateReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, r)
	}
	fmt.Fprintf(w, "Run %s: %d candidates, %d upserted, %d skipped, %d failed in %d batches (%d failed) in %dms\n",
		r.RunID, r.Candidates, r.Upserted, r.Skipped, r.Failed, r.Batches, r.FailedBatches, r.DurationMS)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  batch %d (%d entries): %s\n", e.Batch, e.Size, e.Error)
	}
	if r.NextCursor != "" {
		fmt.Fprintf(w, "Next cursor: %s\n", r.NextCursor)
	}
	return nil
}

// WriteCatalogHits writes keyword search hits to w.
func WriteCatalogHits(w io.Writer, hits []*keyword.CatalogHit, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, hits)
	}
	if len(hits) == 0 {
		fmt.Fprintln(w, "No books found.")
		return nil
	}
	for _, h := range hits {
		author := h.Author
		if author == "" {
			author = models.UnknownAuthor
		}
		fmt.Fprintf(w, "%6d  %-50s  %s (%.3f)\n", h.ID, utils.Truncate(h.Title, 47), author, h.Score)
	}
	return nil
}

// WriteStatus writes store sizes and backends to w.
func WriteStatus(w io.Writer, s *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "Records:      %d (%s)\n", s.Records, FormatBytes(s.DatabaseBytes))
	fmt.Fprintf(w, "Vector index: %d entries, %d dimensions (%s)\n", s.IndexSize, s.IndexDimensions, s.IndexBackend)
	fmt.Fprintf(w, "Catalog:      %d documents\n", s.CatalogDocs)
	fmt.Fprintf(w, "Queue:        %d pending\n", s.QueueLength)
	fmt.Fprintf(w, "Models:       embedding=%s generation=%s\n", s.EmbeddingProvider, s.GenerationModel)
	fmt.Fprintf(w, "Disk usage:   %s\n", FormatBytes(s.DiskBytes))
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
