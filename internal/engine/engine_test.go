package engine

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holoboard/placesync/internal/assets"
	"github.com/holoboard/placesync/internal/events"
	"github.com/holoboard/placesync/internal/placement/domain"
	"github.com/holoboard/placesync/internal/placement/service"
	"github.com/holoboard/placesync/internal/selection"
)

// memStore is an in-memory remote store covering every client interface the
// engine's services need.
type memStore struct {
	mu           sync.Mutex
	metas        map[int]*domain.PlacementMeta
	content      map[string][]byte
	pushes       []domain.TransformUpdate
	pushAttempts int
	pushErr      error
	pushDelay    time.Duration
}

func newMemStore() *memStore {
	return &memStore{
		metas:   make(map[int]*domain.PlacementMeta),
		content: make(map[string][]byte),
	}
}

func (s *memStore) ListAll(ctx context.Context) ([]*domain.PlacementMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.PlacementMeta, 0, len(s.metas))
	for _, m := range s.metas {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memStore) GetByPlacement(ctx context.Context, id int) (*domain.PlacementMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.metas[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) CreateAsset(ctx context.Context, meta *domain.PlacementMeta, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *meta
	s.metas[meta.ID] = &cp
	return nil
}

func (s *memStore) UpdateAsset(ctx context.Context, meta *domain.PlacementMeta, content []byte) error {
	return s.CreateAsset(ctx, meta, content)
}

func (s *memStore) DeleteAsset(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.metas, id)
	return nil
}

func (s *memStore) UpdateTransform(ctx context.Context, id int, pose domain.Pose) error {
	s.mu.Lock()
	delay := s.pushDelay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushAttempts++
	if s.pushErr != nil {
		return s.pushErr
	}
	s.pushes = append(s.pushes, *domain.NewTransformUpdate(id, pose))
	return nil
}

func (s *memStore) FetchContent(ctx context.Context, contentURL string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.content[contentURL]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func newTestEngine(t *testing.T, store *memStore, debounce time.Duration) *Engine {
	t.Helper()
	bus := events.NewBus()
	opts := service.DefaultReconcileOptions()
	opts.PushDebounce = debounce
	cache := assets.NewCache(store, bus)
	registry := service.NewRegistry(store)
	reconciler := service.NewReconciler(store, cache, bus, opts)
	sel := selection.NewArbitrator(bus)
	return New(registry, reconciler, cache, sel, store, bus, Options{TickInterval: 10 * time.Millisecond})
}

// drain runs any commands queued on the engine loop.
func drain(ctx context.Context, e *Engine) {
	for {
		select {
		case fn := <-e.cmds:
			fn(ctx)
		default:
			return
		}
	}
}

// waitPushAttempts blocks until the store has seen n transform updates.
func waitPushAttempts(t *testing.T, store *memStore, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		store.mu.Lock()
		attempts := store.pushAttempts
		store.mu.Unlock()
		if attempts >= n {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("store never saw %d push attempts", n)
}

// drainUntilSynced pumps the engine loop until the placement's push
// completion lands.
func drainUntilSynced(t *testing.T, ctx context.Context, e *Engine, p *domain.Placement) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for p.Dirty && time.Now().Before(deadline) {
		drain(ctx, e)
		time.Sleep(2 * time.Millisecond)
	}
	require.False(t, p.Dirty, "push completion never landed")
}

func TestSyncAll_AdoptsRemotePlacements(t *testing.T) {
	store := newMemStore()
	store.metas[1] = &domain.PlacementMeta{ID: 1, Name: "frame", PosX: 2}
	store.metas[3] = &domain.PlacementMeta{ID: 3, Name: "poster"}

	e := newTestEngine(t, store, time.Second)
	require.NoError(t, e.SyncAll(context.Background()))

	placements := e.registry.List()
	require.Len(t, placements, 2)
	assert.Equal(t, 1, placements[0].ID)
	assert.InDelta(t, 2.0, placements[0].Pose.Position.X, 1e-6)
	assert.Equal(t, 3, placements[1].ID)
}

func TestSyncAll_RetiresRemotelyDeleted(t *testing.T) {
	store := newMemStore()
	store.metas[1] = &domain.PlacementMeta{ID: 1, Name: "frame"}
	store.metas[2] = &domain.PlacementMeta{ID: 2, Name: "poster"}

	e := newTestEngine(t, store, time.Second)
	require.NoError(t, e.SyncAll(context.Background()))

	p2, ok := e.registry.Get(2)
	require.True(t, ok)

	// another client deletes placement 2
	require.NoError(t, store.DeleteAsset(context.Background(), 2))
	require.NoError(t, e.SyncAll(context.Background()))

	_, ok = e.registry.Get(2)
	assert.False(t, ok)
	assert.False(t, p2.Live())
}

func TestSyncAll_DoesNotOverwriteDirtyPose(t *testing.T) {
	store := newMemStore()
	store.metas[1] = &domain.PlacementMeta{ID: 1, Name: "frame"}

	e := newTestEngine(t, store, time.Hour) // debounce far away, stays dirty
	ctx := context.Background()
	require.NoError(t, e.SyncAll(ctx))

	p, _ := e.registry.Get(1)
	edited := p.Pose
	edited.Position = math32.Vec3(5, 0, 0)
	e.UpdatePose(1, edited)
	drain(ctx, e)
	require.True(t, p.Dirty)

	// remote moves it too; the local edit must win until pushed
	store.metas[1].PosX = 9
	require.NoError(t, e.SyncAll(ctx))
	assert.InDelta(t, 5.0, p.Pose.Position.X, 1e-6)
}

func TestTick_PushesDirtyPoseAfterDebounce(t *testing.T) {
	store := newMemStore()
	store.metas[1] = &domain.PlacementMeta{ID: 1, Name: "frame"}

	e := newTestEngine(t, store, 10*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, e.SyncAll(ctx))

	p, _ := e.registry.Get(1)
	edited := p.Pose
	edited.Position = math32.Vec3(5, 0, 0)
	e.UpdatePose(1, edited)
	drain(ctx, e)

	e.tick(ctx, time.Now().Add(20*time.Millisecond))
	waitPushAttempts(t, store, 1)
	drainUntilSynced(t, ctx, e, p)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.pushes, 1)
	assert.Equal(t, 1, store.pushes[0].ID)
	assert.InDelta(t, 5.0, store.pushes[0].PosX, 1e-6)
}

func TestTick_FailedPushRetriesNextCycle(t *testing.T) {
	store := newMemStore()
	store.metas[1] = &domain.PlacementMeta{ID: 1, Name: "frame"}

	e := newTestEngine(t, store, 10*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, e.SyncAll(ctx))

	p, _ := e.registry.Get(1)
	edited := p.Pose
	edited.Position = math32.Vec3(5, 0, 0)
	e.UpdatePose(1, edited)
	drain(ctx, e)

	store.mu.Lock()
	store.pushErr = domain.ErrTransport
	store.mu.Unlock()

	e.tick(ctx, time.Now().Add(20*time.Millisecond))
	waitPushAttempts(t, store, 1)
	drain(ctx, e)
	assert.True(t, p.Dirty, "failed push keeps the placement dirty")

	store.mu.Lock()
	store.pushErr = nil
	store.mu.Unlock()

	e.tick(ctx, time.Now().Add(50*time.Millisecond))
	waitPushAttempts(t, store, 2)
	drainUntilSynced(t, ctx, e, p)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.pushes, 1)
}

func TestTick_SlowPushDoesNotBlockLoop(t *testing.T) {
	store := newMemStore()
	store.metas[1] = &domain.PlacementMeta{ID: 1, Name: "frame"}
	store.pushDelay = 200 * time.Millisecond

	e := newTestEngine(t, store, 10*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, e.SyncAll(ctx))

	p, _ := e.registry.Get(1)
	edited := p.Pose
	edited.Position = math32.Vec3(5, 0, 0)
	e.UpdatePose(1, edited)
	drain(ctx, e)

	start := time.Now()
	e.tick(ctx, start.Add(20*time.Millisecond))
	assert.Less(t, time.Since(start), 50*time.Millisecond,
		"tick must hand the slow store call off the loop")

	waitPushAttempts(t, store, 1)
	drainUntilSynced(t, ctx, e, p)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.pushes, 1)
	assert.InDelta(t, 5.0, store.pushes[0].PosX, 1e-6)
}

func TestRefreshPose_PullsRemotePose(t *testing.T) {
	store := newMemStore()
	store.metas[1] = &domain.PlacementMeta{ID: 1, Name: "frame"}

	e := newTestEngine(t, store, time.Second)
	ctx := context.Background()
	require.NoError(t, e.SyncAll(ctx))
	p, _ := e.registry.Get(1)

	store.mu.Lock()
	store.metas[1].PosX = 7
	store.mu.Unlock()

	e.RefreshPose(1)
	deadline := time.Now().Add(2 * time.Second)
	for p.Pose.Position.X != 7 && time.Now().Before(deadline) {
		drain(ctx, e)
		time.Sleep(2 * time.Millisecond)
	}
	assert.InDelta(t, 7.0, p.Pose.Position.X, 1e-6)
}

func TestLoadContent_AppliesClassification(t *testing.T) {
	store := newMemStore()
	store.metas[1] = &domain.PlacementMeta{ID: 1, Name: "tall", ContentURL: "/content/tall"}
	store.content["/content/tall"] = pngBytes(t, 2, 8)

	e := newTestEngine(t, store, time.Second)
	ctx := context.Background()

	loaded := make(chan struct{}, 4)
	sub := e.bus.Subscribe(func(ev events.Event) {
		if ev.AssetLoaded != nil {
			loaded <- struct{}{}
		}
	})
	defer sub.Close()

	require.NoError(t, e.SyncAll(ctx))

	select {
	case <-loaded:
	case <-time.After(2 * time.Second):
		t.Fatal("asset never loaded")
	}

	// classification lands via the engine loop
	deadline := time.Now().Add(time.Second)
	p, _ := e.registry.Get(1)
	for p.Orientation == domain.OrientationUnknown && time.Now().Before(deadline) {
		drain(ctx, e)
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, domain.OrientationPortrait, p.Orientation)

	// 2x8 content varies the height: 1 / 0.25 = 4
	assert.InDelta(t, 1.0, p.Surface.X, 1e-5)
	assert.InDelta(t, 4.0, p.Surface.Y, 1e-5)
	assert.InDelta(t, 1.0, p.Surface.Z, 1e-5)
}

func TestCreatePlacement_AllocatesSmallestUnusedID(t *testing.T) {
	store := newMemStore()
	store.metas[1] = &domain.PlacementMeta{ID: 1, Name: "a"}
	store.metas[2] = &domain.PlacementMeta{ID: 2, Name: "b"}
	store.metas[4] = &domain.PlacementMeta{ID: 4, Name: "d"}

	e := newTestEngine(t, store, time.Second)

	p, err := e.CreatePlacement(context.Background(), "c", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, p.ID)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Contains(t, store.metas, 3)
}

func TestRemovePlacement_DeletesRemotely(t *testing.T) {
	store := newMemStore()
	store.metas[1] = &domain.PlacementMeta{ID: 1, Name: "a"}

	e := newTestEngine(t, store, time.Second)
	ctx := context.Background()
	require.NoError(t, e.SyncAll(ctx))

	p, ok := e.registry.Get(1)
	require.True(t, ok)

	require.NoError(t, e.RemovePlacement(ctx, 1))
	assert.False(t, p.Live())

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.NotContains(t, store.metas, 1)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(t, store, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
}
