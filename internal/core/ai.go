package core

import "context"

type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMProvider is the hosted completion service. Stream delivers fragments in
// generation order and closes both channels when the response ends or ctx is done.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
	Stream(ctx context.Context, systemPrompt string, userPrompt string) (<-chan string, <-chan error)
}
