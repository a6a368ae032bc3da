package keyword

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/bookworm/internal/models"
)

const defaultLimit = 10

// catalogDoc is the indexed form of a book.
type catalogDoc struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Text        string  `json:"text"`
	Bookshelves string  `json:"bookshelves"`
	AvgRating   float64 `json:"avg_rating"`
}

// BleveIndex implements Catalog using Bleve.
type BleveIndex struct {
	index     bleve.Index
	fuzziness int
}

// Option configures a BleveIndex.
type Option func(*BleveIndex)

// WithFuzziness sets the edit distance used when an exact match finds nothing. Zero disables
// the fuzzy fallback.
func WithFuzziness(n int) Option {
	return func(b *BleveIndex) { b.fuzziness = n }
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so author names match exactly.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	docMapping.AddFieldMappingsAt("author", textFieldMapping)
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	docMapping.AddFieldMappingsAt("bookshelves", textFieldMapping)
	docMapping.AddFieldMappingsAt("avg_rating", bleve.NewNumericFieldMapping())
	im.AddDocumentMapping("book", docMapping)
	im.DefaultType = "book"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path builds an in-memory index.
// If the mapping changes, remove the index directory and re-import.
func NewBleveIndex(path string, opts ...Option) (*BleveIndex, error) {
	b := &BleveIndex{fuzziness: 1}
	for _, opt := range opts {
		opt(b)
	}

	if path == "" {
		index, err := bleve.NewMemOnly(newMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		b.index = index
		return b, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		b.index = index
		return b, nil
	}

	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	b.index = index
	return b, nil
}

// Index adds or replaces a book in the catalog.
func (b *BleveIndex) Index(ctx context.Context, book *models.Book) error {
	doc := catalogDoc{
		Title:       book.Title,
		Author:      book.Author,
		Text:        book.Text,
		Bookshelves: book.Bookshelves,
		AvgRating:   book.AvgRating,
	}
	if err := b.index.Index(book.IndexID(), doc); err != nil {
		return fmt.Errorf("index book %d: %w", book.ID, err)
	}
	return nil
}

// IndexBatch indexes many books in one Bleve batch.
func (b *BleveIndex) IndexBatch(ctx context.Context, books []*models.Book) error {
	batch := b.index.NewBatch()
	for _, book := range books {
		doc := catalogDoc{
			Title:       book.Title,
			Author:      book.Author,
			Text:        book.Text,
			Bookshelves: book.Bookshelves,
			AvgRating:   book.AvgRating,
		}
		if err := batch.Index(book.IndexID(), doc); err != nil {
			return fmt.Errorf("batch book %d: %w", book.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("index batch: %w", err)
	}
	return nil
}

// Search runs a match query over all fields and returns up to limit hits. When nothing matches
// and fuzziness is enabled, the query is retried term by term with fuzzy matching.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]*CatalogHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.Validationf("missing query")
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	hits, err := b.run(ctx, bleve.NewMatchQuery(query), limit)
	if err != nil {
		return nil, err
	}
	if len(hits) > 0 || b.fuzziness <= 0 {
		return hits, nil
	}
	return b.run(ctx, b.buildFuzzyQuery(query), limit)
}

func (b *BleveIndex) run(ctx context.Context, q blevequery.Query, limit int) ([]*CatalogHit, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"title", "author"}
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*CatalogHit, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		h := &CatalogHit{ID: id, Score: hit.Score}
		if s, ok := hit.Fields["title"].(string); ok {
			h.Title = s
		}
		if s, ok := hit.Fields["author"].(string); ok {
			h.Author = s
		}
		out = append(out, h)
	}
	return out, nil
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries, one per query term.
func (b *BleveIndex) buildFuzzyQuery(query string) blevequery.Query {
	terms := strings.Fields(strings.ToLower(query))
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(b.fuzziness)
		queries = append(queries, fq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes a book from the index.
func (b *BleveIndex) Delete(ctx context.Context, id int64) error {
	return b.index.Delete(strconv.FormatInt(id, 10))
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of books in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
