package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hyperjump/bookworm/internal/keyword"
	"github.com/hyperjump/bookworm/internal/models"
	"github.com/hyperjump/bookworm/internal/storage"
	"github.com/hyperjump/bookworm/internal/vector"
)

// fakeStore is an in-memory BookStore. SelectCandidates ignores the shelf and rating filter.
type fakeStore struct {
	storage.BookStore
	books     []*models.Book
	selectErr error
	insertErr error
	inserted  []*models.Book
	queries   []models.CandidateQuery
}

func newFakeStore(n int) *fakeStore {
	s := &fakeStore{}
	for i := 1; i <= n; i++ {
		s.books = append(s.books, &models.Book{
			ID: int64(i), Text: fmt.Sprintf("book %d", i), Title: fmt.Sprintf("Title %d", i), AvgRating: 4,
		})
	}
	return s
}

func (s *fakeStore) SelectCandidates(ctx context.Context, q models.CandidateQuery) ([]*models.Book, error) {
	s.queries = append(s.queries, q)
	if s.selectErr != nil {
		return nil, s.selectErr
	}
	if q.Offset >= len(s.books) {
		return []*models.Book{}, nil
	}
	end := len(s.books)
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return s.books[q.Offset:end], nil
}

func (s *fakeStore) InsertBook(ctx context.Context, b *models.Book) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	b.ID = int64(len(s.books) + len(s.inserted) + 1)
	s.inserted = append(s.inserted, b)
	return nil
}

// fakeEmbedder returns a fixed vector and fails for texts listed in failOn.
type fakeEmbedder struct {
	dims   int
	failOn map[string]error
	empty  bool
	calls  int
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err, ok := e.failOn[t]; ok {
			return nil, err
		}
		if e.empty {
			out[i] = []float32{}
			continue
		}
		v := make([]float32, e.dims)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

func (e *fakeEmbedder) Close() error { return nil }

// fakeIndex records upsert batches and fails the batches listed in failBatch (1-based).
type fakeIndex struct {
	vector.Index
	mu        sync.Mutex
	batches   [][]models.IndexEntry
	failBatch map[int]bool
	err       error
}

func (x *fakeIndex) Upsert(ctx context.Context, entries []models.IndexEntry) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.batches = append(x.batches, entries)
	if x.err != nil {
		return x.err
	}
	if x.failBatch[len(x.batches)] {
		return errors.New("index unavailable")
	}
	return nil
}

func (x *fakeIndex) sizes() []int {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]int, len(x.batches))
	for i, b := range x.batches {
		out[i] = len(b)
	}
	return out
}

type fakeCatalog struct {
	keyword.Catalog
	indexed []int64
	err     error
}

func (c *fakeCatalog) Index(ctx context.Context, b *models.Book) error {
	c.indexed = append(c.indexed, b.ID)
	return c.err
}
