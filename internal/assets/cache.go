package assets

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/holoboard/placesync/internal/events"
	"github.com/holoboard/placesync/internal/placement/domain"
)

// Fetcher is the slice of the store client the cache needs.
type Fetcher interface {
	GetByPlacement(ctx context.Context, id int) (*domain.PlacementMeta, error)
	FetchContent(ctx context.Context, contentURL string) ([]byte, error)
}

// call is one in-flight fetch; all callers for the same id attach to it.
type call struct {
	done  chan struct{}
	asset *Asset
	meta  *domain.PlacementMeta
	err   error
}

// entry is the cached state for one placement id.
type entry struct {
	asset       *Asset
	meta        *domain.PlacementMeta
	inflight    *call
	lastRefresh time.Time
}

// Cache holds decoded content per placement id. At most one fetch per id is
// outstanding at any time; a failed fetch clears the entry so the next Load
// retries cleanly.
type Cache struct {
	fetcher Fetcher
	bus     *events.Bus
	logger  *Logger

	mu      sync.Mutex
	entries map[int]*entry
}

// NewCache creates an asset cache backed by the given fetcher. The bus may be
// nil for consumers that only want return values.
func NewCache(fetcher Fetcher, bus *events.Bus) *Cache {
	return &Cache{
		fetcher: fetcher,
		bus:     bus,
		logger:  NewLogger("asset-cache"),
		entries: make(map[int]*entry),
	}
}

// Load returns the content for a placement.
//
// Without force, a resident asset is returned immediately and an in-flight
// fetch is joined instead of duplicated. With force, cached content and any
// in-flight result are bypassed: a fresh fetch is issued and replaces the
// entry on completion.
func (c *Cache) Load(ctx context.Context, id int, force bool) (*Asset, *domain.PlacementMeta, error) {
	c.mu.Lock()

	e, ok := c.entries[id]
	if !ok {
		e = &entry{}
		c.entries[id] = e
	}

	if !force {
		if e.asset != nil {
			asset, meta := e.asset, e.meta
			c.mu.Unlock()
			return asset, meta, nil
		}
		if e.inflight != nil {
			cl := e.inflight
			c.mu.Unlock()
			return c.wait(ctx, cl)
		}
	}

	cl := &call{done: make(chan struct{})}
	e.inflight = cl
	c.mu.Unlock()

	// The fetch is shared by every waiter, so it must outlive the first
	// caller's context; each waiter honors its own context in wait.
	go c.fetch(context.WithoutCancel(ctx), id, cl)

	return c.wait(ctx, cl)
}

// GetCachedMeta is a non-blocking metadata lookup, used to skip a remote
// round-trip when the metadata is already resident.
func (c *Cache) GetCachedMeta(id int) (*domain.PlacementMeta, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok || e.meta == nil {
		return nil, false
	}
	return e.meta, true
}

// Invalidate discards the cached content for a placement and releases its
// asset. A later Load issues a fresh fetch.
func (c *Cache) Invalidate(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return
	}
	if e.asset != nil {
		e.asset.Release()
	}
	// Detach any in-flight call; its completion will notice it is stale.
	delete(c.entries, id)
}

// fetch runs the remote round-trip and completes the call.
func (c *Cache) fetch(ctx context.Context, id int, cl *call) {
	meta, err := c.fetcher.GetByPlacement(ctx, id)
	if err != nil {
		c.complete(id, cl, nil, nil, err)
		return
	}

	var asset *Asset
	if meta.ContentURL != "" {
		data, err := c.fetcher.FetchContent(ctx, meta.ContentURL)
		if err != nil {
			c.complete(id, cl, nil, meta, err)
			return
		}
		asset, err = Decode(data)
		if err != nil {
			c.complete(id, cl, nil, meta, err)
			return
		}
	} else {
		asset = &Asset{}
	}

	c.complete(id, cl, asset, meta, nil)
}

// complete installs the fetch result if the call is still current and wakes
// all waiters.
func (c *Cache) complete(id int, cl *call, asset *Asset, meta *domain.PlacementMeta, err error) {
	cl.asset, cl.meta, cl.err = asset, meta, err

	c.mu.Lock()
	e, ok := c.entries[id]
	current := ok && e.inflight == cl
	if current {
		e.inflight = nil
		switch {
		case errors.Is(err, domain.ErrInvalidContent):
			// Content replacement aborts but the previous asset stays usable.
			if e.asset == nil {
				delete(c.entries, id)
			}
		case err != nil:
			// Clear the entry entirely so a later Load retries cleanly.
			if e.asset != nil {
				e.asset.Release()
			}
			delete(c.entries, id)
		default:
			if e.asset != nil {
				e.asset.Release()
			}
			e.asset = asset
			e.meta = meta
			e.lastRefresh = time.Now()
		}
	}
	c.mu.Unlock()

	close(cl.done)

	if !current {
		c.logger.LogWarnf("fetch", "dropping stale completion for placement %d", id)
		return
	}
	if err != nil {
		c.logger.LogError("fetch", err)
		if c.bus != nil {
			c.bus.Publish(events.Event{AssetLoadFailed: &events.AssetLoadFailedEvent{
				ID:      id,
				Message: err.Error(),
			}})
		}
		return
	}
	if c.bus != nil {
		c.bus.Publish(events.Event{AssetLoaded: &events.AssetLoadedEvent{
			ID:     id,
			Asset:  asset,
			Width:  asset.Width,
			Height: asset.Height,
			Meta:   meta,
		}})
	}
}

// wait blocks until the call finishes or the caller's context ends.
func (c *Cache) wait(ctx context.Context, cl *call) (*Asset, *domain.PlacementMeta, error) {
	select {
	case <-cl.done:
		return cl.asset, cl.meta, cl.err
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}
