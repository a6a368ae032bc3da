package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/bookworm/internal/generation"
	"github.com/hyperjump/bookworm/internal/models"
	"github.com/hyperjump/bookworm/internal/vector"
)

// stubEmbedder returns the same short vector for every query.
type stubEmbedder struct {
	vec   []float32
	err   error
	texts []string
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.texts = append(e.texts, text)
	return e.vec, e.err
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *stubEmbedder) Close() error { return nil }

type recordingGenerator struct {
	reply    string
	err      error
	messages []generation.Message
}

func (g *recordingGenerator) Generate(ctx context.Context, messages []generation.Message) (string, error) {
	g.messages = messages
	return g.reply, g.err
}

func newIndex(t *testing.T, entries ...models.IndexEntry) *vector.MemoryIndex {
	t.Helper()
	idx, err := vector.NewMemoryIndex(4)
	require.NoError(t, err)
	if len(entries) > 0 {
		require.NoError(t, idx.Upsert(context.Background(), entries))
	}
	return idx
}

func TestRecommend_TwoTitledMatches(t *testing.T) {
	idx := newIndex(t,
		models.IndexEntry{ID: "1", Values: []float32{1, 0, 0, 0}, Metadata: map[string]any{
			models.MetaTitle: "Hyperion", models.MetaAuthor: "Dan Simmons", models.MetaAvgRating: 4.25}},
		models.IndexEntry{ID: "2", Values: []float32{0.9, 0.1, 0, 0}, Metadata: map[string]any{
			models.MetaTitle: "Leviathan Wakes"}},
	)
	gen := &recordingGenerator{reply: "Read Hyperion. Then Leviathan Wakes."}
	emb := &stubEmbedder{vec: []float32{1, 0, 0}}
	p := NewPipeline(Deps{Embedder: emb, Index: idx, Generator: gen})

	rec, err := p.Recommend(context.Background(), "space opera")
	require.NoError(t, err)

	assert.Equal(t, "space opera", rec.Query)
	require.Len(t, rec.SimilarBooks, 2)
	assert.Equal(t, "Hyperion", rec.SimilarBooks[0].Title)
	assert.Equal(t, "Dan Simmons", rec.SimilarBooks[0].Author)
	assert.Equal(t, "4.25", rec.SimilarBooks[0].AvgRating)
	assert.Equal(t, models.UnknownAuthor, rec.SimilarBooks[1].Author)
	assert.Equal(t, models.UnknownRating, rec.SimilarBooks[1].AvgRating)
	assert.NotEmpty(t, rec.Recommendation)

	require.Len(t, gen.messages, 3)
	assert.Equal(t, generation.RoleSystem, gen.messages[0].Role)
	assert.Contains(t, gen.messages[0].Content, `- "Hyperion"`)
	assert.Contains(t, gen.messages[0].Content, `- "Leviathan Wakes"`)
	assert.Equal(t, instruction, gen.messages[1].Content)
	assert.Equal(t, generation.Message{Role: generation.RoleUser, Content: "space opera"}, gen.messages[2])
}

func TestRecommend_NoMatches(t *testing.T) {
	gen := &recordingGenerator{reply: "Nothing to recommend."}
	p := NewPipeline(Deps{Embedder: &stubEmbedder{vec: []float32{1}}, Index: newIndex(t), Generator: gen})

	rec, err := p.Recommend(context.Background(), "anything")
	require.NoError(t, err)
	assert.NotNil(t, rec.SimilarBooks)
	assert.Empty(t, rec.SimilarBooks)
	assert.Equal(t, noMatches, gen.messages[0].Content)
}

func TestRecommend_NoMatchesWithMockGenerator(t *testing.T) {
	p := NewPipeline(Deps{
		Embedder:  &stubEmbedder{vec: []float32{1}},
		Index:     newIndex(t),
		Generator: generation.NewMockGenerator(),
	})
	rec, err := p.Recommend(context.Background(), "anything")
	require.NoError(t, err)
	assert.NotContains(t, rec.Recommendation, `"`)
}

func TestRecommend_UntitledMatchIsListed(t *testing.T) {
	idx := newIndex(t, models.IndexEntry{ID: "1", Values: []float32{1, 0, 0, 0},
		Metadata: map[string]any{models.MetaAuthor: "A"}})
	gen := &recordingGenerator{reply: "ok"}
	p := NewPipeline(Deps{Embedder: &stubEmbedder{vec: []float32{1}}, Index: idx, Generator: gen})

	rec, err := p.Recommend(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, rec.SimilarBooks, 1)
	assert.Equal(t, "Similar books based on the query:\n- \"Unknown Title\"", gen.messages[0].Content)
}

func TestRecommend_DefaultQuery(t *testing.T) {
	emb := &stubEmbedder{vec: []float32{1}}
	p := NewPipeline(Deps{Embedder: emb, Index: newIndex(t), Generator: &recordingGenerator{reply: "ok"}})

	rec, err := p.Recommend(context.Background(), "  ")
	require.NoError(t, err)
	assert.Equal(t, DefaultQuery, rec.Query)
	assert.Equal(t, []string{DefaultQuery}, emb.texts)

	p = NewPipeline(Deps{Embedder: emb, Index: newIndex(t), Generator: &recordingGenerator{reply: "ok"}},
		WithDefaultQuery("Something short"))
	rec, err = p.Recommend(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Something short", rec.Query)
}

func TestRecommend_TopK(t *testing.T) {
	var entries []models.IndexEntry
	for _, id := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		entries = append(entries, models.IndexEntry{ID: id, Values: []float32{1, 1, 0, 0}})
	}
	p := NewPipeline(Deps{Embedder: &stubEmbedder{vec: []float32{1, 1}}, Index: newIndex(t, entries...),
		Generator: &recordingGenerator{reply: "ok"}})
	rec, err := p.Recommend(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, rec.SimilarBooks, DefaultTopK)

	p = NewPipeline(Deps{Embedder: &stubEmbedder{vec: []float32{1, 1}}, Index: newIndex(t, entries...),
		Generator: &recordingGenerator{reply: "ok"}}, WithTopK(2))
	rec, err = p.Recommend(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, rec.SimilarBooks, 2)
}

func TestRecommend_RetrievalFailures(t *testing.T) {
	gen := &recordingGenerator{reply: "unused"}

	p := NewPipeline(Deps{Embedder: &stubEmbedder{err: errors.New("connection refused")}, Index: newIndex(t), Generator: gen})
	_, err := p.Recommend(context.Background(), "q")
	assert.ErrorIs(t, err, ErrRetrieval)
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
	assert.NotErrorIs(t, err, ErrGeneration)

	p = NewPipeline(Deps{Embedder: &stubEmbedder{vec: []float32{}}, Index: newIndex(t), Generator: gen})
	_, err = p.Recommend(context.Background(), "q")
	assert.ErrorIs(t, err, ErrRetrieval)
	assert.ErrorIs(t, err, models.ErrEmptyResult)

	// a query vector longer than the index is not truncated
	p = NewPipeline(Deps{Embedder: &stubEmbedder{vec: []float32{1, 2, 3, 4, 5}}, Index: newIndex(t), Generator: gen})
	_, err = p.Recommend(context.Background(), "q")
	assert.ErrorIs(t, err, ErrRetrieval)
	assert.ErrorIs(t, err, models.ErrDimensionMismatch)

	assert.Nil(t, gen.messages)
}

func TestRecommend_GenerationFailure(t *testing.T) {
	gen := &recordingGenerator{err: context.DeadlineExceeded}
	p := NewPipeline(Deps{Embedder: &stubEmbedder{vec: []float32{1}}, Index: newIndex(t), Generator: gen})

	_, err := p.Recommend(context.Background(), "q")
	assert.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
	assert.NotErrorIs(t, err, ErrRetrieval)
}
