package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/bookworm/internal/models"
)

// MockGenerator answers deterministically from the titles listed in system messages.
// Lines of the form `- "Title"` are treated as candidate titles; the untitled placeholder is skipped.
type MockGenerator struct{}

// NewMockGenerator returns a MockGenerator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate recommends at most two listed titles, or reports that none were available.
func (g *MockGenerator) Generate(ctx context.Context, messages []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var titles []string
	var query string
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			titles = append(titles, listedTitles(m.Content)...)
		case RoleUser:
			query = m.Content
		}
	}
	switch len(titles) {
	case 0:
		return "I could not find any titled books to recommend. Try a different description.", nil
	case 1:
		return fmt.Sprintf("You might enjoy %q. It is the closest match to %q.", titles[0], query), nil
	default:
		return fmt.Sprintf("You might enjoy %q and %q. Both are close matches to %q.", titles[0], titles[1], query), nil
	}
}

func listedTitles(content string) []string {
	var titles []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, `- "`) || !strings.HasSuffix(line, `"`) || len(line) < 4 {
			continue
		}
		if title := line[3 : len(line)-1]; title != models.UnknownTitle {
			titles = append(titles, title)
		}
	}
	return titles
}
