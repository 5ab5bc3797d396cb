package automation

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a Store that keeps definitions in process memory.
// Used when no database is configured and in tests.
type MemoryStore struct {
	mu          sync.RWMutex
	automations map[string]*Automation
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{automations: make(map[string]*Automation)}
}

// List returns copies of every stored automation ordered by ID.
func (s *MemoryStore) List(_ context.Context) ([]Automation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Automation, 0, len(s.automations))
	for _, a := range s.automations {
		out = append(out, *a.DeepCopy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Save stores a copy of a.
func (s *MemoryStore) Save(_ context.Context, a *Automation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.automations[a.ID] = a.DeepCopy()
	return nil
}

// Delete removes id.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.automations[id]; !ok {
		return ErrAutomationNotFound
	}
	delete(s.automations, id)
	return nil
}
