package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/markdave123-py/AmityBot/internal/core"
)

// GenerationSettings are fixed per deployment.
type GenerationSettings struct {
	Temperature     float64
	MaxOutputTokens int
	TopP            float64
	Timeout         time.Duration
}

// DefaultGenerationSettings mirrors the production tuning.
func DefaultGenerationSettings() GenerationSettings {
	return GenerationSettings{Temperature: 0.7, MaxOutputTokens: 1000, TopP: 0.9, Timeout: 60 * time.Second}
}

type GeminiLLM struct {
	client    *genai.Client
	modelName string
	settings  GenerationSettings
}

func NewGeminiLLM(ctx context.Context, apiKey, modelName string, settings GenerationSettings) (*GeminiLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiLLM{client: cl, modelName: modelName, settings: settings}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiLLM) model(systemPrompt string) *genai.GenerativeModel {
	m := g.client.GenerativeModel(g.modelName)
	m.SetTemperature(float32(g.settings.Temperature))
	m.SetTopP(float32(g.settings.TopP))
	if g.settings.MaxOutputTokens > 0 {
		m.SetMaxOutputTokens(int32(g.settings.MaxOutputTokens))
	}
	if systemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}
	return m
}

func (g *GeminiLLM) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.settings.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.settings.Timeout)
}

func (g *GeminiLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.model(systemPrompt).GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return responseText(resp), nil
}

// Stream emits text fragments in generation order. Both channels are closed
// once the response ends, fails, or ctx is cancelled; at most one error is sent.
func (g *GeminiLLM) Stream(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, <-chan error) {
	out := make(chan string, 4)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		ctx, cancel := g.withTimeout(ctx)
		defer cancel()

		iter := g.model(systemPrompt).GenerateContentStream(ctx, genai.Text(userPrompt))
		err := pump(ctx, func() (string, error) {
			resp, err := iter.Next()
			if err != nil {
				return "", err
			}
			return responseText(resp), nil
		}, out)
		if err != nil {
			errc <- fmt.Errorf("gemini stream: %w", err)
		}
	}()

	return out, errc
}

// pump forwards fragments from next until iterator.Done.
func pump(ctx context.Context, next func() (string, error), out chan<- string) error {
	for {
		frag, err := next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if frag == "" {
			continue
		}
		select {
		case out <- frag:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

var _ core.LLMProvider = (*GeminiLLM)(nil)
