package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cogentcore.org/core/math32"
	"golang.org/x/time/rate"

	"github.com/holoboard/placesync/internal/events"
	"github.com/holoboard/placesync/internal/placement/domain"
)

// TransformPusher is the slice of the store client the reconciler needs for
// the push direction.
type TransformPusher interface {
	GetByPlacement(ctx context.Context, id int) (*domain.PlacementMeta, error)
	UpdateTransform(ctx context.Context, id int, pose domain.Pose) error
}

// MetaSource answers non-blocking metadata lookups, normally the asset cache.
type MetaSource interface {
	GetCachedMeta(id int) (*domain.PlacementMeta, bool)
}

// ReconcileOptions are the drift thresholds and push debounce.
type ReconcileOptions struct {
	PositionThreshold float32 // distance units
	RotationThreshold float32 // degrees
	ScaleThreshold    float32
	SyncScale         bool
	PushDebounce      time.Duration
}

// DefaultReconcileOptions mirror the shipped configuration defaults.
func DefaultReconcileOptions() ReconcileOptions {
	return ReconcileOptions{
		PositionThreshold: 0.01,
		RotationThreshold: 0.1,
		ScaleThreshold:    0.01,
		SyncScale:         false,
		PushDebounce:      2 * time.Second,
	}
}

// Reconciler keeps each placement's pose consistent with the remote store:
// authoritative pulls are applied unless a local edit is pending, and local
// drift is pushed no more often than the debounce interval.
type Reconciler struct {
	client TransformPusher
	metas  MetaSource
	bus    *events.Bus
	opts   ReconcileOptions
	logger *Logger

	mu       sync.Mutex
	limiters map[int]*rate.Limiter
}

// NewReconciler creates a reconciler. metas and bus may be nil.
func NewReconciler(client TransformPusher, metas MetaSource, bus *events.Bus, opts ReconcileOptions) *Reconciler {
	if opts.PushDebounce <= 0 {
		opts.PushDebounce = DefaultReconcileOptions().PushDebounce
	}
	return &Reconciler{
		client:   client,
		metas:    metas,
		bus:      bus,
		opts:     opts,
		logger:   NewLogger("reconciler"),
		limiters: make(map[int]*rate.Limiter),
	}
}

// PullMeta resolves authoritative metadata for a placement, from the cache
// when resident and from the store otherwise. Touches no placement state, so
// it is safe to call off the engine loop.
func (r *Reconciler) PullMeta(ctx context.Context, id int) (*domain.PlacementMeta, error) {
	if meta, ok := r.cachedMeta(id); ok {
		return meta, nil
	}
	meta, err := r.client.GetByPlacement(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("pull placement %d: %w", id, err)
	}
	return meta, nil
}

// Apply overwrites the local pose with authoritative metadata, unless the
// placement is dirty, in which case the pull is suppressed so the unpushed
// edit survives. Suppression is reported as domain.ErrPullSuppressed and is
// not a failure.
func (r *Reconciler) Apply(p *domain.Placement, meta *domain.PlacementMeta) error {
	if p.Dirty {
		r.logger.LogInfof("pull", "placement %d dirty, skipping authoritative pull", p.ID)
		return domain.ErrPullSuppressed
	}
	if !p.Live() {
		return nil // placement removed while the metadata was in flight
	}

	p.ApplyMeta(meta)
	recordPull()
	if r.bus != nil {
		r.bus.Publish(events.Event{PoseApplied: &events.PoseAppliedEvent{ID: p.ID, Pose: p.Pose}})
	}
	return nil
}

// PullAndApply is the synchronous pull: fetch authoritative metadata and
// apply it. The dirty check runs before the fetch so a suppressed pull never
// costs a round-trip.
func (r *Reconciler) PullAndApply(ctx context.Context, p *domain.Placement) error {
	if p.Dirty {
		r.logger.LogInfof("pull", "placement %d dirty, skipping authoritative pull", p.ID)
		return domain.ErrPullSuppressed
	}
	meta, err := r.PullMeta(ctx, p.ID)
	if err != nil {
		return err
	}
	return r.Apply(p, meta)
}

// CheckDrift compares the current pose against the baseline and marks the
// placement dirty when any threshold is exceeded. Reports whether the
// placement is now dirty.
func (r *Reconciler) CheckDrift(p *domain.Placement, current domain.Pose) bool {
	if r.driftExceeded(p.Baseline, current) {
		if !p.Dirty {
			p.Dirty = true
			p.DirtySince = time.Now()
		}
		p.Pose = current
	}
	return p.Dirty
}

// PushDue reports whether a dirty placement may push now. A positive answer
// consumes the placement's debounce token, so the caller is expected to
// follow through with a push attempt, successful or not.
func (r *Reconciler) PushDue(p *domain.Placement, now time.Time) bool {
	if !p.Dirty {
		return false
	}
	return r.limiter(p.ID).AllowN(now, 1)
}

// PushPose sends a pose to the store. Touches no placement state, so it is
// safe to call off the engine loop; the caller applies the outcome with
// FinishPush.
func (r *Reconciler) PushPose(ctx context.Context, id int, pose domain.Pose) error {
	if err := r.client.UpdateTransform(ctx, id, pose); err != nil {
		recordPushFailure()
		r.logger.LogError("push", fmt.Errorf("placement %d: %w", id, err))
		return err
	}
	recordPush()
	return nil
}

// FinishPush records the outcome of a push attempt on the placement. Success
// resets the baseline to the pushed pose and returns the placement to the
// synced state; failure leaves it dirty so the next debounce cycle retries.
func (r *Reconciler) FinishPush(p *domain.Placement, pose domain.Pose, err error) {
	if err != nil || !p.Live() {
		return
	}
	p.Baseline = pose
	p.Dirty = false
	p.LastSyncAt = time.Now()
}

// Push is the synchronous push of the placement's current pose.
func (r *Reconciler) Push(ctx context.Context, p *domain.Placement) error {
	pose := p.Pose
	err := r.PushPose(ctx, p.ID, pose)
	r.FinishPush(p, pose, err)
	return err
}

// Forget drops per-placement reconciler state after removal.
func (r *Reconciler) Forget(id int) {
	r.mu.Lock()
	delete(r.limiters, id)
	r.mu.Unlock()
}

// limiter returns the placement's debounce limiter, a token bucket of one
// refilled every PushDebounce.
func (r *Reconciler) limiter(id int) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[id]
	if !ok {
		l = rate.NewLimiter(rate.Every(r.opts.PushDebounce), 1)
		r.limiters[id] = l
	}
	return l
}

func (r *Reconciler) cachedMeta(id int) (*domain.PlacementMeta, bool) {
	if r.metas == nil {
		return nil, false
	}
	return r.metas.GetCachedMeta(id)
}

func (r *Reconciler) driftExceeded(baseline, current domain.Pose) bool {
	if current.Position.DistanceTo(baseline.Position) > r.opts.PositionThreshold {
		return true
	}
	if rotationDeltaDegrees(baseline.Rotation, current.Rotation) > r.opts.RotationThreshold {
		return true
	}
	if r.opts.SyncScale && current.Scale.DistanceTo(baseline.Scale) > r.opts.ScaleThreshold {
		return true
	}
	return false
}

// rotationDeltaDegrees is the absolute angle between two orientations.
func rotationDeltaDegrees(a, b math32.Quat) float32 {
	dot := math32.Abs(a.Dot(b))
	if dot > 1 {
		dot = 1
	}
	return 2 * math32.Acos(dot) * math32.RadToDegFactor
}
