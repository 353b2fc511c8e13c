package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/holoboard/placesync/internal/placement/domain"
)

// StoreClient is the slice of the remote store the registry needs.
type StoreClient interface {
	ListAll(ctx context.Context) ([]*domain.PlacementMeta, error)
	GetByPlacement(ctx context.Context, id int) (*domain.PlacementMeta, error)
	CreateAsset(ctx context.Context, meta *domain.PlacementMeta, content []byte) error
	UpdateAsset(ctx context.Context, meta *domain.PlacementMeta, content []byte) error
	DeleteAsset(ctx context.Context, id int) error
}

// Registry owns the authoritative Placement instance per id for this session.
type Registry struct {
	client StoreClient
	logger *Logger

	mu         sync.Mutex
	placements map[int]*domain.Placement
}

// NewRegistry creates an empty placement registry.
func NewRegistry(client StoreClient) *Registry {
	return &Registry{
		client:     client,
		logger:     NewLogger("registry"),
		placements: make(map[int]*domain.Placement),
	}
}

// Create reserves the smallest unused positive id at the store, creates the
// placement there and registers the local instance.
func (r *Registry) Create(ctx context.Context, name, contentType string, content []byte) (*domain.Placement, error) {
	metas, err := r.client.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list placements: %w", err)
	}

	id := SmallestUnusedID(metas)
	p, err := domain.NewPlacement(id, name)
	if err != nil {
		return nil, err
	}

	meta := &domain.PlacementMeta{ID: id, Name: name, Type: contentType}
	meta.SetPose(p.Pose)
	if err := r.client.CreateAsset(ctx, meta, content); err != nil {
		return nil, fmt.Errorf("create placement %d: %w", id, err)
	}

	r.mu.Lock()
	_, exists := r.placements[id]
	if !exists {
		r.placements[id] = p
	}
	r.mu.Unlock()

	if exists {
		// The id was registered locally between list and create; roll the
		// remote record back so it is not orphaned.
		if derr := r.client.DeleteAsset(ctx, id); derr != nil {
			r.logger.LogError("create", fmt.Errorf("rollback placement %d: %w", id, derr))
		}
		return nil, domain.ErrAlreadyExists
	}
	r.logger.LogInfof("create", "registered placement %d (%s)", id, name)
	return p, nil
}

// Adopt registers a placement discovered at the remote store. Returns the
// existing instance when the id is already registered.
func (r *Registry) Adopt(meta *domain.PlacementMeta) (*domain.Placement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.placements[meta.ID]; ok {
		return p, nil
	}
	p, err := domain.NewPlacement(meta.ID, meta.Name)
	if err != nil {
		return nil, err
	}
	p.ApplyMeta(meta)
	r.placements[meta.ID] = p
	return p, nil
}

// UpdateContent replaces a placement's content bytes (and orientation hint)
// at the store. The caller is expected to force-refresh the cached asset
// afterwards so the new content URL is picked up.
func (r *Registry) UpdateContent(ctx context.Context, id int, contentType string, content []byte) error {
	r.mu.Lock()
	p, ok := r.placements[id]
	r.mu.Unlock()
	if !ok {
		return domain.ErrNotFound
	}

	meta := &domain.PlacementMeta{ID: p.ID, Name: p.Name, Type: contentType}
	meta.SetPose(p.Pose)
	if err := r.client.UpdateAsset(ctx, meta, content); err != nil {
		return fmt.Errorf("update placement %d: %w", id, err)
	}
	return nil
}

// Get returns the live placement for id.
func (r *Registry) Get(id int) (*domain.Placement, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.placements[id]
	return p, ok
}

// List returns the registered placements in id order.
func (r *Registry) List() []*domain.Placement {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Placement, 0, len(r.placements))
	for _, p := range r.placements {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Remove retires the local instance and, when deleteRemote is set, deletes
// the placement at the store as well.
func (r *Registry) Remove(ctx context.Context, id int, deleteRemote bool) error {
	r.mu.Lock()
	p, ok := r.placements[id]
	if ok {
		p.Retire()
		delete(r.placements, id)
	}
	r.mu.Unlock()

	if !ok {
		return domain.ErrNotFound
	}
	if deleteRemote {
		if err := r.client.DeleteAsset(ctx, id); err != nil {
			return fmt.Errorf("delete placement %d: %w", id, err)
		}
	}
	return nil
}

// SmallestUnusedID returns the smallest positive integer not present in the
// given metadata set; {1,2,4} yields 3.
func SmallestUnusedID(metas []*domain.PlacementMeta) int {
	used := make(map[int]bool, len(metas))
	for _, m := range metas {
		if m.ID > 0 {
			used[m.ID] = true
		}
	}
	id := 1
	for used[id] {
		id++
	}
	return id
}
