package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
)

// ErrGenerationNotFound is returned for unknown generation ids.
var ErrGenerationNotFound = errors.New("book generation not found")

// JobStore persists book generation records.
type JobStore interface {
	Create(ctx context.Context, gen *models.BookGeneration) error
	Get(ctx context.Context, id string) (*models.BookGeneration, error)
	// Update replaces the record only while its stored status still equals from.
	Update(ctx context.Context, gen *models.BookGeneration, from models.GenerationStatus) error
}

// MemoryStore keeps generations in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]models.BookGeneration
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]models.BookGeneration)}
}

func (m *MemoryStore) Create(ctx context.Context, gen *models.BookGeneration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[gen.ID]; exists {
		return fmt.Errorf("book generation %s already exists", gen.ID)
	}
	m.jobs[gen.ID] = *gen
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*models.BookGeneration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	gen, ok := m.jobs[id]
	if !ok {
		return nil, ErrGenerationNotFound
	}
	return &gen, nil
}

func (m *MemoryStore) Update(ctx context.Context, gen *models.BookGeneration, from models.GenerationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.jobs[gen.ID]
	if !ok {
		return ErrGenerationNotFound
	}
	if current.Status != from {
		return fmt.Errorf("book generation %s is %s, expected %s", gen.ID, current.Status, from)
	}
	m.jobs[gen.ID] = *gen
	return nil
}
