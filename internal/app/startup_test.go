package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/AmityBot/internal/core/crm"
	"github.com/markdave123-py/AmityBot/internal/core/index"
	"github.com/markdave123-py/AmityBot/internal/core/ingestion_engine"
	"github.com/markdave123-py/AmityBot/internal/core/rag"
	"github.com/markdave123-py/AmityBot/internal/core/session"
	"github.com/markdave123-py/AmityBot/internal/models"
)

// gatedEmbedder holds the first embedding call until release is closed.
type gatedEmbedder struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := []float32{0.1, 0}
		if strings.Contains(strings.ToLower(t), "hostel") {
			v[1] = 1
		}
		out[i] = v
	}
	return out, nil
}

type promptRecorder struct {
	mu      sync.Mutex
	prompts []string
}

func (p *promptRecorder) Generate(_ context.Context, _, user string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, user)
	return "ok", nil
}

func (p *promptRecorder) Stream(context.Context, string, string) (<-chan string, <-chan error) {
	out, errc := make(chan string), make(chan error)
	close(out)
	close(errc)
	return out, errc
}

func (p *promptRecorder) last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prompts[len(p.prompts)-1]
}

func TestStartBackground_AnswersWhileFirstBuildRuns(t *testing.T) {
	dataDir := t.TempDir()
	kb := "Hostel rooms are shared between two students and curfew is at ten in the evening."
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "hostel.txt"), []byte(kb), 0o644))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := index.OpenDiskStore(filepath.Join(t.TempDir(), "index"))
	require.NoError(t, err)

	emb := &gatedEmbedder{entered: make(chan struct{}), release: make(chan struct{})}
	gw := index.NewGateway(emb, store, 8, logger)
	ing := ingestion_engine.NewDocumentIngestor(ingestion_engine.DefaultIngestConfig(dataDir),
		ingestion_engine.NewNormalizer(ingestion_engine.NewDocconvExtractor(false)), gw, nil, nil, logger)
	llm := &promptRecorder{}

	a := &App{
		logger:       logger,
		Index:        gw,
		Ingestor:     ing,
		Orchestrator: rag.NewOrchestrator(gw, crm.NewMemoryStore(crm.SeedLeads()), llm, session.NewMemoryStore(), nil, logger),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.startBackground(ctx) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("startBackground blocked on the index build")
	}

	select {
	case <-emb.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("initial build never started")
	}

	_, err = a.Orchestrator.Answer(ctx, "What are the hostel rules?", models.RoleGeneral, "")
	require.NoError(t, err)
	assert.Contains(t, llm.last(), rag.UnavailableContext)

	close(emb.release)
	require.Eventually(t, func() bool {
		n, err := gw.Count(ctx)
		return err == nil && n > 0
	}, 5*time.Second, 10*time.Millisecond)

	_, err = a.Orchestrator.Answer(ctx, "What are the hostel rules?", models.RoleGeneral, "")
	require.NoError(t, err)
	assert.Contains(t, llm.last(), "curfew")
}
