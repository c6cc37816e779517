package rag

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/models"
)

const (
	searchK = 5

	generalContextDocs       = 2
	authenticatedContextDocs = 5

	MaxContextChars  = 3000
	truncationMarker = "..."

	// EmptyContext stands in when retrieval finds nothing.
	EmptyContext = "No specific information found in the database."
	// UnavailableContext stands in when no index has been built.
	UnavailableContext = "Sorry, the knowledge base is not available at the moment."
)

// Searcher is the read side of the index gateway.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.SearchResult, error)
}

// ContextAssembler turns search hits into a bounded context string.
type ContextAssembler struct {
	index  Searcher
	logger *slog.Logger
}

func NewContextAssembler(index Searcher, logger *slog.Logger) *ContextAssembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextAssembler{index: index, logger: logger}
}

// ContextDocs is how many hits a role may see.
func ContextDocs(role models.Role) int {
	if role == models.RoleAuthenticated {
		return authenticatedContextDocs
	}
	return generalContextDocs
}

// Assemble never returns an empty string. A missing index degrades to a fixed
// notice; other search failures are returned to the caller.
func (a *ContextAssembler) Assemble(ctx context.Context, question string, role models.Role) (string, error) {
	hits, err := a.index.Search(ctx, question, searchK)
	if errors.Is(err, core.ErrIndexUnavailable) {
		a.logger.Warn("knowledge base unavailable")
		return UnavailableContext, nil
	}
	if err != nil {
		return "", err
	}

	if n := ContextDocs(role); len(hits) > n {
		hits = hits[:n]
	}

	texts := make([]string, 0, len(hits))
	for _, h := range hits {
		texts = append(texts, h.Text)
	}
	joined := truncate(strings.Join(texts, "\n\n"), MaxContextChars)
	if joined == "" {
		return EmptyContext, nil
	}
	a.logger.Debug("context assembled", "hits", len(hits), "role", role, "chars", len(joined))
	return joined, nil
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + truncationMarker
}
