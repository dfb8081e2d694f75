package tokenstore

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/facegate/internal/client/models"
)

// MemoryStore keeps the pair for the lifetime of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens models.Tokens
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Set(_ context.Context, tokens models.Tokens) error {
	if err := validate(tokens); err != nil {
		return err
	}
	s.mu.Lock()
	s.tokens = tokens
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context) (models.Tokens, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.tokens = models.Tokens{}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) HasAccess(_ context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Access != ""
}
