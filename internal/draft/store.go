// Package draft persists the in-progress rental window between sessions.
package draft

import (
	"context"
	"sync"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
)

// DefaultKey is used when a session has no key of its own.
const DefaultKey = "rentalDraft"

// Store saves rental window drafts by key.
type Store interface {
	Get(ctx context.Context, key string) (models.RentalWindow, bool, error)
	Set(ctx context.Context, key string, w models.RentalWindow) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps drafts in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]models.RentalWindow
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]models.RentalWindow)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (models.RentalWindow, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.drafts[key]
	return w, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, w models.RentalWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[key] = w
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, key)
	return nil
}
