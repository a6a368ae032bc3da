package recommend

import (
	"fmt"
	"strings"

	"github.com/hyperjump/bookworm/internal/generation"
	"github.com/hyperjump/bookworm/internal/models"
)

const (
	contextHeader = "Similar books based on the query:"
	noMatches     = "No similar books found."

	instruction = "Return 2 sentences containing book recommendations from the similar books provided if they have a title. " +
		"Do not return them if they don't have a title. Explain why they might be good choices and return nothing else."
)

// BuildContext lists every matched book for the model, placeholders included. The
// instruction message tells the model to skip untitled ones.
func BuildContext(books []models.BookSummary) string {
	if len(books) == 0 {
		return noMatches
	}
	var sb strings.Builder
	sb.WriteString(contextHeader)
	for i := range books {
		fmt.Fprintf(&sb, "\n- \"%s\"", books[i].Title)
	}
	return sb.String()
}

// BuildMessages returns the context, the fixed instruction and the user query, in that order.
func BuildMessages(query string, books []models.BookSummary) []generation.Message {
	return []generation.Message{
		{Role: generation.RoleSystem, Content: BuildContext(books)},
		{Role: generation.RoleSystem, Content: instruction},
		{Role: generation.RoleUser, Content: query},
	}
}
