// Package engine runs the client-side synchronization loop: it owns the
// placement registry, drives the per-tick drift check, and funnels async
// completions back onto a single goroutine so placement state is never
// mutated concurrently.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/holoboard/placesync/internal/assets"
	"github.com/holoboard/placesync/internal/classify"
	"github.com/holoboard/placesync/internal/events"
	"github.com/holoboard/placesync/internal/placement/domain"
	"github.com/holoboard/placesync/internal/placement/service"
	"github.com/holoboard/placesync/internal/selection"
)

// Lister is the slice of the store client used for full reconciles.
type Lister interface {
	ListAll(ctx context.Context) ([]*domain.PlacementMeta, error)
}

// Options tune the engine loop.
type Options struct {
	TickInterval time.Duration

	// Geometry controls how display surfaces are resized to loaded content.
	SizeMode  classify.SizeMode
	FixedDims classify.FixedDims
	Limits    classify.Limits
}

// Engine coordinates the cache, reconciler, registry and selection services.
type Engine struct {
	registry   *service.Registry
	reconciler *service.Reconciler
	cache      *assets.Cache
	selection  *selection.Arbitrator
	lister     Lister
	bus        *events.Bus
	logger     *service.Logger
	opts       Options

	cmds chan func(context.Context)
}

// New wires an engine from its services.
func New(registry *service.Registry, reconciler *service.Reconciler, cache *assets.Cache, sel *selection.Arbitrator, lister Lister, bus *events.Bus, opts Options) *Engine {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 200 * time.Millisecond
	}
	if opts.Limits == (classify.Limits{}) {
		opts.Limits = classify.Limits{Min: 0.5, Max: 10}
	}
	return &Engine{
		registry:   registry,
		reconciler: reconciler,
		cache:      cache,
		selection:  sel,
		lister:     lister,
		bus:        bus,
		logger:     service.NewLogger("engine"),
		opts:       opts,
		cmds:       make(chan func(context.Context), 64),
	}
}

// Run executes the tick loop until ctx is cancelled. An initial full
// reconcile adopts all placements known to the store.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.SyncAll(ctx); err != nil {
		e.logger.LogError("startup-sync", err)
	}

	ticker := time.NewTicker(e.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-e.cmds:
			fn(ctx)
		case now := <-ticker.C:
			e.tick(ctx, now)
		}
	}
}

// UpdatePose reports a local pose edit for a placement. The edit is applied
// on the engine loop; the next tick detects the drift and schedules a
// debounced push.
func (e *Engine) UpdatePose(id int, pose domain.Pose) {
	e.post(func(ctx context.Context) {
		p, ok := e.registry.Get(id)
		if !ok {
			return
		}
		e.reconciler.CheckDrift(p, pose)
	})
}

// Select routes a selection request through the arbitrator.
func (e *Engine) Select(id int)   { e.selection.Select(id) }
func (e *Engine) Deselect(id int) { e.selection.Deselect(id) }

// LoadContent loads (or force-refreshes) a placement's content and applies
// the resulting classification. Runs asynchronously; completion is reported
// through the event bus.
func (e *Engine) LoadContent(ctx context.Context, id int, force bool) {
	go func() {
		asset, meta, err := e.cache.Load(ctx, id, force)
		if err != nil {
			return // the cache already published the failure
		}
		e.post(func(context.Context) {
			p, ok := e.registry.Get(id)
			if !ok || !p.Live() {
				return // removed while the fetch was in flight
			}
			p.Orientation = classify.Classify(meta.Type, asset.Width, asset.Height)
			p.Surface = classify.ComputeSurfaceScale(
				p.Surface,
				classify.Ratio(asset.Width, asset.Height),
				p.Orientation,
				e.opts.SizeMode, e.opts.FixedDims, e.opts.Limits,
			)
		})
	}()
}

// CreatePlacement creates a placement at the store under the smallest unused
// id and, when content was attached, starts loading it.
func (e *Engine) CreatePlacement(ctx context.Context, name, contentType string, content []byte) (*domain.Placement, error) {
	p, err := e.registry.Create(ctx, name, contentType, content)
	if err != nil {
		return nil, err
	}
	if content != nil {
		e.LoadContent(ctx, p.ID, true)
	}
	return p, nil
}

// RemovePlacement deletes a placement locally and at the store.
func (e *Engine) RemovePlacement(ctx context.Context, id int) error {
	e.selection.ClearHooks(id)
	e.cache.Invalidate(id)
	e.reconciler.Forget(id)
	return e.registry.Remove(ctx, id, true)
}

// ReplaceContent swaps a placement's content at the store and force-refreshes
// the cached asset so the new bytes and classification take effect.
func (e *Engine) ReplaceContent(ctx context.Context, id int, contentType string, content []byte) error {
	if err := e.registry.UpdateContent(ctx, id, contentType, content); err != nil {
		return err
	}
	e.LoadContent(ctx, id, true)
	return nil
}

// SyncAll reconciles the local registry against the authoritative placement
// list: new placements are adopted and loaded, remotely deleted ones are
// retired, and every synced placement gets an authoritative pull. Blocks on
// the list fetch; the loop uses RequestSync instead.
func (e *Engine) SyncAll(ctx context.Context) error {
	metas, err := e.lister.ListAll(ctx)
	if err != nil {
		return err
	}
	e.applySync(ctx, metas)
	return nil
}

// RefreshPose re-pulls one placement's authoritative pose. The metadata
// lookup runs off the engine loop; the apply is posted back onto it.
func (e *Engine) RefreshPose(id int) {
	e.post(func(ctx context.Context) {
		p, ok := e.registry.Get(id)
		if !ok || p.Dirty {
			return
		}
		go func() {
			meta, err := e.reconciler.PullMeta(ctx, id)
			if err != nil {
				e.logger.LogError("refresh", err)
				return
			}
			e.post(func(context.Context) {
				p, ok := e.registry.Get(id)
				if !ok || !p.Live() {
					return
				}
				if err := e.reconciler.Apply(p, meta); err != nil && !errors.Is(err, domain.ErrPullSuppressed) {
					e.logger.LogError("refresh", err)
				}
			})
		}()
	})
}

// applySync diffs the authoritative list against the registry. Pure local
// work apart from the content loads it kicks off.
func (e *Engine) applySync(ctx context.Context, metas []*domain.PlacementMeta) {
	seen := make(map[int]bool, len(metas))
	for _, meta := range metas {
		seen[meta.ID] = true

		p, err := e.registry.Adopt(meta)
		if err != nil {
			e.logger.LogError("reconcile", err)
			continue
		}

		if err := e.reconciler.Apply(p, meta); err != nil && !errors.Is(err, domain.ErrPullSuppressed) {
			e.logger.LogError("reconcile", err)
		}

		if p.ContentURL != "" {
			if _, cached := e.cache.GetCachedMeta(p.ID); !cached {
				e.LoadContent(ctx, p.ID, false)
			}
		}
	}

	for _, p := range e.registry.List() {
		if seen[p.ID] {
			continue
		}
		id := p.ID
		e.logger.LogInfof("reconcile", "placement %d deleted remotely, retiring", id)
		e.selection.ClearHooks(id)
		e.cache.Invalidate(id)
		e.reconciler.Forget(id)
		if err := e.registry.Remove(ctx, id, false); err != nil {
			e.logger.LogError("reconcile", err)
		}
	}
}

// RequestSync schedules a full reconcile. The authoritative list is fetched
// off the engine loop; only the diff runs on it.
func (e *Engine) RequestSync() {
	e.post(func(ctx context.Context) {
		go func() {
			metas, err := e.lister.ListAll(ctx)
			if err != nil {
				e.logger.LogError("reconcile", err)
				return
			}
			e.post(func(ctx context.Context) { e.applySync(ctx, metas) })
		}()
	})
}

// tick runs one drift/push cycle over all live placements. Due pushes are
// issued off the loop; their baseline reset is posted back onto it, so a slow
// store never stalls drift checks or queued commands.
func (e *Engine) tick(ctx context.Context, now time.Time) {
	for _, p := range e.registry.List() {
		e.reconciler.CheckDrift(p, p.Pose)
		if !e.reconciler.PushDue(p, now) {
			continue
		}
		id, pose := p.ID, p.Pose
		go func() {
			err := e.reconciler.PushPose(ctx, id, pose)
			e.post(func(context.Context) {
				p, ok := e.registry.Get(id)
				if !ok || !p.Live() {
					return
				}
				e.reconciler.FinishPush(p, pose, err)
			})
		}()
	}
}

// post schedules fn on the engine loop, dropping it if the loop is saturated
// rather than blocking the caller.
func (e *Engine) post(fn func(context.Context)) {
	select {
	case e.cmds <- fn:
	default:
		e.logger.LogWarnf("post", "command queue full, dropping update")
	}
}
