package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/models"
)

const defaultBatchSize = 32

// Gateway embeds text and delegates storage to a VectorStore backend.
type Gateway struct {
	embedder  core.EmbeddingProvider
	store     core.VectorStore
	batchSize int
	logger    *slog.Logger
}

func NewGateway(embedder core.EmbeddingProvider, store core.VectorStore, batchSize int, logger *slog.Logger) *Gateway {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{embedder: embedder, store: store, batchSize: batchSize, logger: logger}
}

// Search returns at most k chunks ranked by similarity to query.
// It returns core.ErrIndexUnavailable before any index has been built.
func (g *Gateway) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	n, err := g.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	vecs, err := g.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}
	return g.store.Search(ctx, vecs[0], k)
}

// Upsert embeds chunks and adds them to the active generation.
func (g *Gateway) Upsert(ctx context.Context, chunks []models.Chunk) error {
	records, err := g.embed(ctx, chunks)
	if err != nil {
		return err
	}
	return g.store.Append(ctx, records)
}

// Rebuild replaces the whole index. Every chunk is embedded before the store
// is touched, so a failed embedding leaves the previous index serving.
func (g *Gateway) Rebuild(ctx context.Context, chunks []models.Chunk) error {
	records, err := g.embed(ctx, chunks)
	if err != nil {
		return err
	}
	return g.store.Replace(ctx, records)
}

func (g *Gateway) Count(ctx context.Context) (int, error) {
	return g.store.Count(ctx)
}

func (g *Gateway) embed(ctx context.Context, chunks []models.Chunk) ([]core.VectorRecord, error) {
	records := make([]core.VectorRecord, 0, len(chunks))
	for start := 0; start < len(chunks); start += g.batchSize {
		end := min(start+g.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vecs, err := g.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("embed batch %d-%d: got %d vectors", start, end, len(vecs))
		}
		for i, c := range batch {
			records = append(records, core.VectorRecord{Chunk: c, Embedding: vecs[i]})
		}
		g.logger.Debug("embedded batch", "from", start, "to", end)
	}
	return records, nil
}
