// Package repository persists placement metadata and content blobs for the
// reference store server.
package repository

import (
	"context"

	"github.com/holoboard/placesync/internal/placement/domain"
)

// Repository is the storage contract for the store server. Implementations
// must return domain.ErrNotFound for missing placements or blobs.
type Repository interface {
	List(ctx context.Context) ([]*domain.PlacementMeta, error)
	Get(ctx context.Context, id int) (*domain.PlacementMeta, error)
	Create(ctx context.Context, meta *domain.PlacementMeta) error
	Update(ctx context.Context, meta *domain.PlacementMeta) error
	Delete(ctx context.Context, id int) error

	PutContent(ctx context.Context, key string, data []byte) error
	GetContent(ctx context.Context, key string) ([]byte, error)
	DeleteContent(ctx context.Context, key string) error
}
