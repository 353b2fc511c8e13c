package repository

import (
	"context"
	"sync"
	"time"

	"github.com/holoboard/placesync/internal/placement/domain"
)

// MemoryRepository keeps everything in process memory. Suitable for tests
// and single-instance development servers.
type MemoryRepository struct {
	mu    sync.RWMutex
	metas map[int]*domain.PlacementMeta
	blobs map[string][]byte
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		metas: make(map[int]*domain.PlacementMeta),
		blobs: make(map[string][]byte),
	}
}

func (r *MemoryRepository) List(ctx context.Context) ([]*domain.PlacementMeta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.PlacementMeta, 0, len(r.metas))
	for _, m := range r.metas {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id int) (*domain.PlacementMeta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.metas[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MemoryRepository) Create(ctx context.Context, meta *domain.PlacementMeta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.metas[meta.ID]; exists {
		return domain.ErrAlreadyExists
	}
	cp := *meta
	cp.UpdatedAt = time.Now()
	r.metas[meta.ID] = &cp
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, meta *domain.PlacementMeta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.metas[meta.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *meta
	cp.UpdatedAt = time.Now()
	r.metas[meta.ID] = &cp
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.metas[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.metas, id)
	return nil
}

func (r *MemoryRepository) PutContent(ctx context.Context, key string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	r.blobs[key] = cp
	return nil
}

func (r *MemoryRepository) GetContent(ctx context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.blobs[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (r *MemoryRepository) DeleteContent(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blobs, key)
	return nil
}
