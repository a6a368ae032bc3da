// Package ingest embeds stored books and upserts them into the similarity index in paced batches.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/bookworm/internal/embedding"
	"github.com/hyperjump/bookworm/internal/keyword"
	"github.com/hyperjump/bookworm/internal/models"
	"github.com/hyperjump/bookworm/internal/storage"
	"github.com/hyperjump/bookworm/internal/vector"
)

const (
	DefaultBatchSize  = 10
	DefaultBatchDelay = 500 * time.Millisecond
)

// Deps are the collaborators of a Pipeline. Catalog is optional.
type Deps struct {
	Store    storage.BookStore
	Embedder embedding.Embedder
	Index    vector.Index
	Catalog  keyword.Catalog
}

// ProgressFunc is called after each candidate has been processed.
type ProgressFunc func(processed, total int)

// Pipeline ingests books into the similarity index.
type Pipeline struct {
	store      storage.BookStore
	embedder   embedding.Embedder
	index      vector.Index
	catalog    keyword.Catalog
	batchSize  int
	batchDelay time.Duration
	progress   ProgressFunc
	logger     *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBatchSize sets the number of entries per upsert. Values below 1 are ignored.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithBatchDelay sets the pause after each full batch. Zero disables pausing.
func WithBatchDelay(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.batchDelay = d
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

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(deps Deps, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:      deps.Store,
		embedder:   deps.Embedder,
		index:      deps.Index,
		catalog:    deps.Catalog,
		batchSize:  DefaultBatchSize,
		batchDelay: DefaultBatchDelay,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("component", "ingest"))
	return p
}

// Run fetches the candidates selected by q, embeds each one and upserts them in batches.
//
// A store failure aborts the run. A record whose embedding fails is skipped, and a batch whose
// upsert fails is recorded in the report; neither stops the run. After every full batch the run
// pauses for the configured delay. If ctx is canceled the partial report is returned with the
// context error.
func (p *Pipeline) Run(ctx context.Context, q models.CandidateQuery) (*models.PopulateReport, error) {
	start := time.Now()
	report := &models.PopulateReport{RunID: uuid.NewString()}
	logger := p.logger.With(zap.String("run_id", report.RunID))

	books, err := p.store.SelectCandidates(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	report.Candidates = len(books)
	logger.Info("population started",
		zap.Int("candidates", len(books)), zap.Int("offset", q.Offset), zap.Int("batch_size", p.batchSize))

	batch := make([]models.IndexEntry, 0, p.batchSize)
	for i, b := range books {
		if err := ctx.Err(); err != nil {
			report.DurationMS = time.Since(start).Milliseconds()
			return report, err
		}
		entry, err := p.entryFor(ctx, b)
		if err != nil {
			report.Skipped++
			logger.Warn("skipping book", zap.Int64("id", b.ID), zap.String("title", b.Title), zap.Error(err))
		} else {
			batch = append(batch, entry)
			report.Embedded++
		}
		if p.progress != nil {
			p.progress(i+1, len(books))
		}

		if len(batch) == p.batchSize {
			p.flush(ctx, logger, batch, report)
			batch = make([]models.IndexEntry, 0, p.batchSize)
			if err := p.pause(ctx); err != nil {
				report.DurationMS = time.Since(start).Milliseconds()
				return report, err
			}
		}
	}
	if len(batch) > 0 {
		p.flush(ctx, logger, batch, report)
	}

	report.DurationMS = time.Since(start).Milliseconds()
	logger.Info("population finished",
		zap.Int("upserted", report.Upserted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed_batches", report.FailedBatches),
		zap.Int64("duration_ms", report.DurationMS))
	return report, nil
}

// entryFor embeds a single book into an index entry.
func (p *Pipeline) entryFor(ctx context.Context, b *models.Book) (models.IndexEntry, error) {
	text := Preprocess(b.EmbeddingText())
	if text == "" {
		return models.IndexEntry{}, models.Validationf("book %d has no text", b.ID)
	}
	vecs, err := p.embedder.EmbedBatch(ctx, []string{text})
	if err != nil {
		return models.IndexEntry{}, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return models.IndexEntry{}, fmt.Errorf("%w: no embedding for book %d", models.ErrEmptyResult, b.ID)
	}
	return models.IndexEntry{ID: b.IndexID(), Values: vecs[0], Metadata: b.Metadata()}, nil
}

func (p *Pipeline) flush(ctx context.Context, logger *zap.Logger, batch []models.IndexEntry, report *models.PopulateReport) {
	report.Batches++
	if err := p.index.Upsert(ctx, batch); err != nil {
		err = models.Upstream("similarity index", err)
		report.FailedBatches++
		report.Failed += len(batch)
		report.Errors = append(report.Errors, models.BatchError{Batch: report.Batches, Size: len(batch), Error: err.Error()})
		logger.Error("batch upsert failed", zap.Int("batch", report.Batches), zap.Int("size", len(batch)), zap.Error(err))
		return
	}
	report.Upserted += len(batch)
	logger.Debug("batch upserted", zap.Int("batch", report.Batches), zap.Int("size", len(batch)))
}

// pause blocks for the batch delay or until ctx is done.
func (p *Pipeline) pause(ctx context.Context) error {
	if p.batchDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(p.batchDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// AddBook stores a new book and indexes it immediately. Input without text is rejected before
// anything is stored. Catalog indexing is best effort; embedding and upsert failures are returned.
func (p *Pipeline) AddBook(ctx context.Context, in models.BookInput) (*models.AddBookResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	book := in.Book()
	if err := p.store.InsertBook(ctx, book); err != nil {
		return nil, fmt.Errorf("store book: %w", err)
	}
	logger := p.logger.With(zap.Int64("id", book.ID))

	if p.catalog != nil {
		if err := p.catalog.Index(ctx, book); err != nil {
			logger.Warn("catalog indexing failed", zap.Error(err))
		}
	}

	entry, err := p.entryFor(ctx, book)
	if err != nil {
		return nil, fmt.Errorf("embed book %d: %w", book.ID, err)
	}
	if err := p.index.Upsert(ctx, []models.IndexEntry{entry}); err != nil {
		return nil, fmt.Errorf("index book %d: %w", book.ID, models.Upstream("similarity index", err))
	}
	logger.Info("book added", zap.String("title", book.Title))

	return &models.AddBookResult{
		ID:   book.ID,
		Text: book.Text,
		Inserted: models.UpsertResult{
			Count: 1,
			IDs:   []string{entry.ID},
		},
	}, nil
}
