package cartstore

import (
	"context"
	"sync"

	"github.com/angelmondragon/storefront-client/pkg/types"
)

// MemoryStore keeps the mirror in process memory. It backs tests and
// throwaway harness runs where persistence across restarts does not matter.
type MemoryStore struct {
	mu        sync.Mutex
	lines     []types.CartLine
	sessionID string
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) LoadLines(ctx context.Context) ([]types.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.CloneLines(s.lines), nil
}

func (s *MemoryStore) SaveLines(ctx context.Context, lines []types.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = types.CloneLines(lines)
	return nil
}

func (s *MemoryStore) LoadSessionID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID, nil
}

func (s *MemoryStore) SaveSessionID(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = sessionID
	return nil
}

func (s *MemoryStore) Close() error { return nil }
