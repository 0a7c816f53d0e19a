package memory

import (
	"context"
	"sync"
)

// Storage is an in-memory embedding cache keyed by model and text.
type Storage struct {
	mu      sync.RWMutex
	vectors map[string]map[string][]float64
}

func NewStorage() *Storage {
	return &Storage{vectors: make(map[string]map[string][]float64)}
}

func (s *Storage) Get(_ context.Context, model string, texts []string) (map[string][]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byText := s.vectors[model]
	out := make(map[string][]float64, len(texts))
	for _, t := range texts {
		if v, ok := byText[t]; ok {
			out[t] = clone(v)
		}
	}
	return out, nil
}

func (s *Storage) Put(_ context.Context, model string, vectors map[string][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byText, ok := s.vectors[model]
	if !ok {
		byText = make(map[string][]float64, len(vectors))
		s.vectors[model] = byText
	}
	for t, v := range vectors {
		byText[t] = clone(v)
	}
	return nil
}

func (s *Storage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = make(map[string]map[string][]float64)
	return nil
}

// Len is the number of cached vectors across all models.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, byText := range s.vectors {
		n += len(byText)
	}
	return n
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
