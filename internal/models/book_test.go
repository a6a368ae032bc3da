package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBook_EmbeddingText(t *testing.T) {
	b := &Book{Text: "A tale of two cities", Title: "A Tale of Two Cities"}
	assert.Equal(t, "A tale of two cities", b.EmbeddingText())

	b = &Book{Title: "Persuasion"}
	assert.Equal(t, "Persuasion", b.EmbeddingText())
}

func TestBook_Metadata(t *testing.T) {
	b := &Book{ID: 7, Text: "Dune", Title: "Dune", Author: "Frank Herbert", AvgRating: 4.25, Bookshelves: "read, sci-fi"}
	assert.Equal(t, "7", b.IndexID())
	assert.Equal(t, map[string]any{
		MetaTitle:       "Dune",
		MetaAuthor:      "Frank Herbert",
		MetaAvgRating:   4.25,
		MetaBookshelves: "read, sci-fi",
		MetaText:        "Dune",
	}, b.Metadata())

	bare := &Book{ID: 1, Text: "only text"}
	assert.Equal(t, map[string]any{MetaText: "only text"}, bare.Metadata())
}

func TestBookInput_Validate(t *testing.T) {
	assert.ErrorIs(t, (&BookInput{}).Validate(), ErrValidation)
	assert.ErrorIs(t, (&BookInput{Text: "   "}).Validate(), ErrValidation)
	assert.NoError(t, (&BookInput{Text: "Middlemarch"}).Validate())
}

func TestSummaryFromResult_Placeholders(t *testing.T) {
	s := SummaryFromResult(QueryResult{ID: "3", Score: 0.5})
	assert.Equal(t, BookSummary{ID: "3", Title: UnknownTitle, Author: UnknownAuthor, AvgRating: UnknownRating, Similarity: 0.5}, s)
	assert.False(t, s.HasTitle())

	s = SummaryFromResult(QueryResult{ID: "4", Score: 0.9, Metadata: map[string]any{
		MetaTitle: "Emma", MetaAuthor: "", MetaAvgRating: 3.9,
	}})
	assert.Equal(t, "Emma", s.Title)
	assert.Equal(t, UnknownAuthor, s.Author)
	assert.Equal(t, "3.9", s.AvgRating)
	assert.True(t, s.HasTitle())
}
