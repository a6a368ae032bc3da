package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/bookworm/internal/embedding"
	"github.com/hyperjump/bookworm/internal/models"
	"github.com/hyperjump/bookworm/internal/storage"
	"github.com/hyperjump/bookworm/internal/vector"
)

var allCandidates = models.CandidateQuery{Shelf: "read", MinRating: 3.7, Limit: 200}

func TestRun_BatchCompleteness(t *testing.T) {
	store := newFakeStore(25)
	idx := &fakeIndex{}
	delay := 30 * time.Millisecond
	p := NewPipeline(Deps{Store: store, Embedder: &fakeEmbedder{dims: 4}, Index: idx},
		WithBatchSize(10), WithBatchDelay(delay))

	start := time.Now()
	report, err := p.Run(context.Background(), allCandidates)
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.Equal(t, []int{10, 10, 5}, idx.sizes())
	assert.GreaterOrEqual(t, elapsed, 2*delay)
	assert.Equal(t, 25, report.Candidates)
	assert.Equal(t, 25, report.Embedded)
	assert.Equal(t, 25, report.Upserted)
	assert.Equal(t, 3, report.Batches)
	assert.Zero(t, report.FailedBatches)
	assert.NotEmpty(t, report.RunID)

	first := idx.batches[0][0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "Title 1", first.Metadata[models.MetaTitle])
	assert.Equal(t, 4.0, first.Metadata[models.MetaAvgRating])
}

func TestRun_ExactMultipleHasNoRemainder(t *testing.T) {
	idx := &fakeIndex{}
	p := NewPipeline(Deps{Store: newFakeStore(20), Embedder: &fakeEmbedder{dims: 2}, Index: idx},
		WithBatchSize(10), WithBatchDelay(0))

	report, err := p.Run(context.Background(), allCandidates)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 10}, idx.sizes())
	assert.Equal(t, 2, report.Batches)
}

func TestRun_NoCandidates(t *testing.T) {
	idx := &fakeIndex{}
	p := NewPipeline(Deps{Store: newFakeStore(0), Embedder: &fakeEmbedder{dims: 2}, Index: idx})

	report, err := p.Run(context.Background(), allCandidates)
	require.NoError(t, err)
	assert.Empty(t, idx.batches)
	assert.Zero(t, report.Candidates)
}

func TestRun_EmbeddingFailureSkipsRecord(t *testing.T) {
	store := newFakeStore(12)
	emb := &fakeEmbedder{dims: 2, failOn: map[string]error{
		"book 3": models.Upstream("embedding", errors.New("timeout")),
	}}
	idx := &fakeIndex{}
	p := NewPipeline(Deps{Store: store, Embedder: emb, Index: idx}, WithBatchSize(10), WithBatchDelay(0))

	report, err := p.Run(context.Background(), allCandidates)
	require.NoError(t, err)

	assert.Equal(t, []int{10, 1}, idx.sizes())
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 11, report.Upserted)
	for _, batch := range idx.batches {
		for _, e := range batch {
			assert.NotEqual(t, "3", e.ID)
		}
	}
}

func TestRun_EmptyEmbeddingSkipsRecord(t *testing.T) {
	idx := &fakeIndex{}
	p := NewPipeline(Deps{Store: newFakeStore(3), Embedder: &fakeEmbedder{empty: true}, Index: idx})

	report, err := p.Run(context.Background(), allCandidates)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Skipped)
	assert.Empty(t, idx.batches)
}

func TestRun_UpsertFailureIsIsolated(t *testing.T) {
	idx := &fakeIndex{failBatch: map[int]bool{2: true}}
	p := NewPipeline(Deps{Store: newFakeStore(25), Embedder: &fakeEmbedder{dims: 2}, Index: idx},
		WithBatchSize(10), WithBatchDelay(0))

	report, err := p.Run(context.Background(), allCandidates)
	require.NoError(t, err)

	assert.Equal(t, []int{10, 10, 5}, idx.sizes())
	assert.Equal(t, 1, report.FailedBatches)
	assert.Equal(t, 10, report.Failed)
	assert.Equal(t, 15, report.Upserted)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 2, report.Errors[0].Batch)
	assert.Equal(t, 10, report.Errors[0].Size)
	assert.Contains(t, report.Errors[0].Error, "index unavailable")
}

func TestRun_StoreFailureAborts(t *testing.T) {
	store := newFakeStore(5)
	store.selectErr = models.Upstream("record store", errors.New("disk I/O error"))
	idx := &fakeIndex{}
	p := NewPipeline(Deps{Store: store, Embedder: &fakeEmbedder{dims: 2}, Index: idx})

	report, err := p.Run(context.Background(), allCandidates)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
	assert.Empty(t, idx.batches)
}

func TestRun_CancelDuringPause(t *testing.T) {
	idx := &fakeIndex{}
	p := NewPipeline(Deps{Store: newFakeStore(30), Embedder: &fakeEmbedder{dims: 2}, Index: idx},
		WithBatchSize(10), WithBatchDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	report, err := p.Run(ctx, allCandidates)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, report)
	assert.Equal(t, 10, report.Upserted)
	assert.Equal(t, []int{10}, idx.sizes())
}

func TestRun_Progress(t *testing.T) {
	var calls []int
	p := NewPipeline(Deps{Store: newFakeStore(3), Embedder: &fakeEmbedder{dims: 2}, Index: &fakeIndex{}},
		WithProgress(func(done, total int) {
			assert.Equal(t, 3, total)
			calls = append(calls, done)
		}))
	_, err := p.Run(context.Background(), allCandidates)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, calls)
}

func TestAddBook(t *testing.T) {
	store := newFakeStore(0)
	idx := &fakeIndex{}
	catalog := &fakeCatalog{}
	p := NewPipeline(Deps{Store: store, Embedder: &fakeEmbedder{dims: 2}, Index: idx, Catalog: catalog})

	res, err := p.AddBook(context.Background(), models.BookInput{Text: "  A quiet   novel ", Title: "Stoner"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.ID)
	assert.Equal(t, "  A quiet   novel ", res.Text)
	assert.Equal(t, models.UpsertResult{Count: 1, IDs: []string{"1"}}, res.Inserted)
	assert.Equal(t, []int64{1}, catalog.indexed)
	require.Equal(t, []int{1}, idx.sizes())
	assert.Equal(t, "Stoner", idx.batches[0][0].Metadata[models.MetaTitle])
}

func TestAddBook_EmptyTextNoInsert(t *testing.T) {
	store := newFakeStore(0)
	idx := &fakeIndex{}
	emb := &fakeEmbedder{dims: 2}
	p := NewPipeline(Deps{Store: store, Embedder: emb, Index: idx})

	_, err := p.AddBook(context.Background(), models.BookInput{Text: " "})
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, store.inserted)
	assert.Zero(t, emb.calls)
	assert.Empty(t, idx.batches)
}

func TestAddBook_Failures(t *testing.T) {
	ctx := context.Background()

	store := newFakeStore(0)
	store.insertErr = models.Upstream("record store", errors.New("locked"))
	p := NewPipeline(Deps{Store: store, Embedder: &fakeEmbedder{dims: 2}, Index: &fakeIndex{}})
	_, err := p.AddBook(ctx, models.BookInput{Text: "x"})
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)

	p = NewPipeline(Deps{Store: newFakeStore(0), Embedder: &fakeEmbedder{empty: true}, Index: &fakeIndex{}})
	_, err = p.AddBook(ctx, models.BookInput{Text: "x"})
	assert.ErrorIs(t, err, models.ErrEmptyResult)

	p = NewPipeline(Deps{Store: newFakeStore(0), Embedder: &fakeEmbedder{dims: 2}, Index: &fakeIndex{err: errors.New("down")}})
	_, err = p.AddBook(ctx, models.BookInput{Text: "x"})
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)

	// catalog failures do not fail the add
	p = NewPipeline(Deps{Store: newFakeStore(0), Embedder: &fakeEmbedder{dims: 2}, Index: &fakeIndex{}, Catalog: &fakeCatalog{err: errors.New("bleve")}})
	_, err = p.AddBook(ctx, models.BookInput{Text: "x"})
	assert.NoError(t, err)
}

func TestAddBook_DimensionMismatch(t *testing.T) {
	idx, err := vector.NewMemoryIndex(4)
	require.NoError(t, err)
	p := NewPipeline(Deps{Store: newFakeStore(0), Embedder: embedding.NewMockEmbedder(3), Index: idx})

	_, err = p.AddBook(context.Background(), models.BookInput{Text: "wrong model"})
	assert.ErrorIs(t, err, models.ErrDimensionMismatch)
	assert.NotErrorIs(t, err, models.ErrUpstreamUnavailable)
}

func TestRun_WithRealStoreAndIndex(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStorage(t.TempDir() + "/books.db")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.InsertBooks(ctx, []*models.Book{
		{Text: "Dune", Title: "Dune", AvgRating: 4.25, Bookshelves: "read"},
		{Text: "Emma", Title: "Emma", AvgRating: 3.5, Bookshelves: "read"},
		{Text: "Ulysses", Title: "Ulysses", AvgRating: 3.8, Bookshelves: "to-read"},
	}))
	idx, err := vector.NewMemoryIndex(8)
	require.NoError(t, err)

	p := NewPipeline(Deps{Store: store, Embedder: embedding.NewMockEmbedder(8), Index: idx}, WithBatchDelay(0))
	report, err := p.Run(ctx, allCandidates)
	require.NoError(t, err)
	// "to-read" contains "read"
	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, 2, idx.Size())
}

func TestPreprocess(t *testing.T) {
	assert.Equal(t, "a b c", Preprocess("  a \n\t b   c "))
	assert.Equal(t, "", Preprocess("   "))
}
