package repository

import (
	"context"
	"sync"

	propertydomain "github.com/smallbiznis/homescore/internal/property/domain"
)

// MemoryStore serves all three property repositories from process memory.
// Records are returned in insertion order.
type MemoryStore struct {
	mu         sync.RWMutex
	properties []propertydomain.Property
	assets     map[string][]propertydomain.Asset
	tasks      map[string][]propertydomain.MaintenanceTask
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assets: make(map[string][]propertydomain.Asset),
		tasks:  make(map[string][]propertydomain.MaintenanceTask),
	}
}

func (s *MemoryStore) AddProperty(p propertydomain.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties = append(s.properties, p)
}

func (s *MemoryStore) AddAsset(a propertydomain.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[a.PropertyID] = append(s.assets[a.PropertyID], a)
}

func (s *MemoryStore) AddTask(t propertydomain.MaintenanceTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.PropertyID] = append(s.tasks[t.PropertyID], t)
}

func (s *MemoryStore) Properties() propertydomain.PropertyRepository { return memoryProperties{s} }
func (s *MemoryStore) Assets() propertydomain.AssetRepository        { return memoryAssets{s} }
func (s *MemoryStore) Tasks() propertydomain.TaskRepository          { return memoryTasks{s} }

type memoryProperties struct{ s *MemoryStore }

func (m memoryProperties) FindByID(ctx context.Context, id string) (*propertydomain.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, p := range m.s.properties {
		if p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (m memoryProperties) FindAll(ctx context.Context) ([]propertydomain.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return append([]propertydomain.Property(nil), m.s.properties...), nil
}

type memoryAssets struct{ s *MemoryStore }

func (m memoryAssets) FindByPropertyID(ctx context.Context, propertyID string) ([]propertydomain.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return append([]propertydomain.Asset(nil), m.s.assets[propertyID]...), nil
}

type memoryTasks struct{ s *MemoryStore }

func (m memoryTasks) FindByPropertyID(ctx context.Context, propertyID string) ([]propertydomain.MaintenanceTask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return append([]propertydomain.MaintenanceTask(nil), m.s.tasks[propertyID]...), nil
}
