package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/holoboard/placesync/internal/placement/domain"
)

const (
	metaKeyPrefix = "place:meta:" // placement metadata JSON: place:meta:{id}
	idSetKey      = "place:ids"   // set of all placement ids
	blobKeyPrefix = "place:blob:" // content bytes: place:blob:{key}
)

// RedisRepository persists placements in Redis so multiple store server
// instances share state.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a Redis-backed repository.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) List(ctx context.Context) ([]*domain.PlacementMeta, error) {
	ids, err := r.client.SMembers(ctx, idSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list placement ids: %w", err)
	}

	out := make([]*domain.PlacementMeta, 0, len(ids))
	for _, idStr := range ids {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		meta, err := r.Get(ctx, id)
		if err == domain.ErrNotFound {
			// id set and meta key can drift if a delete raced; skip
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	return out, nil
}

func (r *RedisRepository) Get(ctx context.Context, id int) (*domain.PlacementMeta, error) {
	data, err := r.client.Get(ctx, r.metaKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get placement: %w", err)
	}

	var meta domain.PlacementMeta
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal placement: %w", err)
	}
	return &meta, nil
}

func (r *RedisRepository) Create(ctx context.Context, meta *domain.PlacementMeta) error {
	exists, err := r.client.SIsMember(ctx, idSetKey, strconv.Itoa(meta.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check placement id: %w", err)
	}
	if exists {
		return domain.ErrAlreadyExists
	}
	return r.put(ctx, meta)
}

func (r *RedisRepository) Update(ctx context.Context, meta *domain.PlacementMeta) error {
	exists, err := r.client.SIsMember(ctx, idSetKey, strconv.Itoa(meta.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check placement id: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return r.put(ctx, meta)
}

func (r *RedisRepository) Delete(ctx context.Context, id int) error {
	removed, err := r.client.SRem(ctx, idSetKey, strconv.Itoa(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete placement: %w", err)
	}
	if removed == 0 {
		return domain.ErrNotFound
	}
	if err := r.client.Del(ctx, r.metaKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete placement metadata: %w", err)
	}
	return nil
}

func (r *RedisRepository) PutContent(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, blobKeyPrefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store content: %w", err)
	}
	return nil
}

func (r *RedisRepository) GetContent(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, blobKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	return data, nil
}

func (r *RedisRepository) DeleteContent(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, blobKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	return nil
}

func (r *RedisRepository) put(ctx context.Context, meta *domain.PlacementMeta) error {
	cp := *meta
	cp.UpdatedAt = time.Now()

	data, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("failed to marshal placement: %w", err)
	}

	// Use pipeline for atomic operations
	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.metaKey(meta.ID), data, 0)
	pipe.SAdd(ctx, idSetKey, strconv.Itoa(meta.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store placement: %w", err)
	}
	return nil
}

func (r *RedisRepository) metaKey(id int) string {
	return metaKeyPrefix + strconv.Itoa(id)
}
