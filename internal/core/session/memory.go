package session

import (
	"context"
	"sync"

	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/models"
)

var _ core.SessionStore = (*MemoryStore)(nil)

// MemoryStore keeps chat history in process memory. History is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]models.Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]models.Turn)}
}

// Get returns a copy of the session history; unknown sessions are empty.
func (s *MemoryStore) Get(_ context.Context, sessionID string) ([]models.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionID]
	out := make([]models.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, turn models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turn)
	return nil
}
