package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"genstudio/internal/models"
	"genstudio/internal/pricing"
)

// MemoryPricingStore keeps pricing models in process memory. It serves
// local development and tests.
type MemoryPricingStore struct {
	mu     sync.RWMutex
	models map[string]*models.PricingModel
}

func NewMemoryPricingStore() *MemoryPricingStore {
	return &MemoryPricingStore{models: make(map[string]*models.PricingModel)}
}

func (s *MemoryPricingStore) List(_ context.Context, filter ListFilter) ([]*models.PricingModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := []*models.PricingModel{}
	for _, m := range s.models {
		if filter.Matches(m) {
			list = append(list, m.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Tool != b.Tool {
			return a.Tool < b.Tool
		}
		if a.Engine != b.Engine {
			return a.Engine < b.Engine
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return list, nil
}

func (s *MemoryPricingStore) Get(_ context.Context, id string) (*models.PricingModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.models[id]
	if !ok {
		return nil, ErrPricingModelNotFound
	}
	return m.Clone(), nil
}

func (s *MemoryPricingStore) Create(_ context.Context, m *models.PricingModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.taken(m, "") {
		return ErrDuplicateModelKey
	}
	prepare(m)
	m.ID = uuid.NewString()
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	s.models[m.ID] = m.Clone()
	return nil
}

func (s *MemoryPricingStore) Update(_ context.Context, m *models.PricingModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.models[m.ID]
	if !ok {
		return ErrPricingModelNotFound
	}
	if s.taken(m, m.ID) {
		return ErrDuplicateModelKey
	}
	prepare(m)
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Now().UTC()
	s.models[m.ID] = m.Clone()
	return nil
}

func (s *MemoryPricingStore) UpdateCell(_ context.Context, id, resolution, option string, credits float64) (*models.PricingModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.models[id]
	if !ok {
		return nil, ErrPricingModelNotFound
	}
	if m.Pricing == nil {
		m.Pricing = pricing.NewMatrix()
	}
	m.Pricing.Set(resolution, option, credits)
	m.UpdatedAt = time.Now().UTC()
	return m.Clone(), nil
}

func (s *MemoryPricingStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.models[id]; !ok {
		return ErrPricingModelNotFound
	}
	delete(s.models, id)
	return nil
}

// taken reports whether another model already uses m's identity. Must be
// called with mu held.
func (s *MemoryPricingStore) taken(m *models.PricingModel, exceptID string) bool {
	for id, other := range s.models {
		if id != exceptID && other.Engine == m.Engine && other.Version == m.Version && other.ModelKey == m.ModelKey {
			return true
		}
	}
	return false
}
