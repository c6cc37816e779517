package rag

import (
	"context"
	"sync"

	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/core/crm"
	"github.com/markdave123-py/AmityBot/internal/models"
)

type fakeSearcher struct {
	mu    sync.Mutex
	hits  []models.SearchResult
	err   error
	calls int
	ks    []int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, k int) ([]models.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ks = append(f.ks, k)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > k {
		return f.hits[:k], nil
	}
	return f.hits, nil
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeLLM struct {
	mu        sync.Mutex
	reply     string
	fragments []string
	err       error
	streamErr error
	prompts   []string
	systems   []string
}

func (f *fakeLLM) Generate(_ context.Context, system, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.systems = append(f.systems, system)
	f.prompts = append(f.prompts, user)
	return f.reply, f.err
}

func (f *fakeLLM) Stream(ctx context.Context, system, user string) (<-chan string, <-chan error) {
	f.mu.Lock()
	f.systems = append(f.systems, system)
	f.prompts = append(f.prompts, user)
	frags := append([]string(nil), f.fragments...)
	streamErr := f.streamErr
	f.mu.Unlock()

	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for _, fr := range frags {
			select {
			case out <- fr:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		if streamErr != nil {
			errc <- streamErr
		}
	}()
	return out, errc
}

func (f *fakeLLM) promptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// countingLeads wraps the demo CRM and counts lookups.
type countingLeads struct {
	*crm.MemoryStore
	mu    sync.Mutex
	calls int
	err   error
}

func newCountingLeads() *countingLeads {
	return &countingLeads{MemoryStore: crm.NewMemoryStore(crm.SeedLeads())}
}

func (c *countingLeads) GetLead(ctx context.Context, id string) (*models.LeadRecord, error) {
	c.mu.Lock()
	c.calls++
	err := c.err
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.MemoryStore.GetLead(ctx, id)
}

func (c *countingLeads) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

var _ core.LeadStore = (*countingLeads)(nil)

func hits(texts ...string) []models.SearchResult {
	out := make([]models.SearchResult, len(texts))
	for i, t := range texts {
		out[i] = models.SearchResult{Text: t, SourceRef: "kb.txt", Score: 1 - float64(i)/10}
	}
	return out
}
