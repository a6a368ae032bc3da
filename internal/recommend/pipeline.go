// Package recommend answers free-text queries with similar books and a generated recommendation.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/bookworm/internal/embedding"
	"github.com/hyperjump/bookworm/internal/generation"
	"github.com/hyperjump/bookworm/internal/models"
	"github.com/hyperjump/bookworm/internal/vector"
)

const (
	DefaultTopK  = 5
	DefaultQuery = "Recommend me a book"
)

var (
	// ErrRetrieval marks a failure while embedding the query or searching the index.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrGeneration marks a failure of the generation model.
	ErrGeneration = errors.New("generation failed")
)

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Embedder  embedding.Embedder
	Index     vector.Index
	Generator generation.Generator
}

// Pipeline runs retrieval followed by generation.
type Pipeline struct {
	embedder     embedding.Embedder
	index        vector.Index
	generator    generation.Generator
	topK         int
	defaultQuery string
	logger       *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTopK sets the number of similar books retrieved. Values below 1 are ignored.
func WithTopK(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithDefaultQuery sets the query used when the caller sends none.
func WithDefaultQuery(q string) Option {
	return func(p *Pipeline) {
		if strings.TrimSpace(q) != "" {
			p.defaultQuery = q
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline creates a retrieval pipeline.
func NewPipeline(deps Deps, opts ...Option) *Pipeline {
	p := &Pipeline{
		embedder:     deps.Embedder,
		index:        deps.Index,
		generator:    deps.Generator,
		topK:         DefaultTopK,
		defaultQuery: DefaultQuery,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("component", "recommend"))
	return p
}

// Recommend embeds query, retrieves the nearest books and asks the generator to recommend
// among them. A blank query is replaced by the default query.
func (p *Pipeline) Recommend(ctx context.Context, query string) (*models.Recommendation, error) {
	start := time.Now()
	if strings.TrimSpace(query) == "" {
		query = p.defaultQuery
	}

	books, err := p.Similar(ctx, query)
	if err != nil {
		return nil, err
	}

	text, err := p.generator.Generate(ctx, BuildMessages(query, books))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, models.Upstream("generation", err))
	}

	p.logger.Info("recommendation generated",
		zap.String("query", query),
		zap.Int("matches", len(books)),
		zap.Duration("took", time.Since(start)))
	return &models.Recommendation{
		Query:          query,
		SimilarBooks:   books,
		Recommendation: text,
	}, nil
}

// Similar returns the top-K books nearest to query without calling the generator.
func (p *Pipeline) Similar(ctx context.Context, query string) ([]models.BookSummary, error) {
	vec, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", ErrRetrieval, models.Upstream("embedding", err))
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: %w: no embedding for query", ErrRetrieval, models.ErrEmptyResult)
	}
	vec = vector.PadVector(vec, p.index.Dimensions())

	results, err := p.index.Query(ctx, vec, vector.QueryOptions{
		TopK:            p.topK,
		IncludeValues:   true,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query index: %w", ErrRetrieval, models.Upstream("similarity index", err))
	}

	books := make([]models.BookSummary, 0, len(results))
	for _, r := range results {
		books = append(books, models.SummaryFromResult(r))
	}
	p.logger.Debug("similar books", zap.String("query", query), zap.Int("matches", len(books)))
	return books, nil
}
