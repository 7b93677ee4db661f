package memory

import (
	"context"
	"sync"

	"github.com/Franelll/MaaS-sub000/internal/stream/application/ports/out"
	"github.com/Franelll/MaaS-sub000/internal/stream/domain"
)

// Store — in-memory реализация EntityStore для dev-запусков и тестов
type Store struct {
	mu       sync.RWMutex
	entities map[string]domain.Entity
}

func NewStore() out.EntityStore {
	return &Store{entities: make(map[string]domain.Entity)}
}

func (s *Store) UpsertBatch(_ context.Context, batch domain.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range batch.Entities {
		s.entities[e.ID] = e
	}
	return nil
}

func (s *Store) ListInArea(_ context.Context, area domain.Area) ([]domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Entity
	for _, e := range s.entities {
		if area.Contains(e.Location) {
			result = append(result, e)
		}
	}
	return result, nil
}
