package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holoboard/placesync/internal/placement/domain"
)

// fakeStore implements StoreClient over an in-memory metadata set.
type fakeStore struct {
	metas   []*domain.PlacementMeta
	listErr error
	created []*domain.PlacementMeta
	updated []*domain.PlacementMeta
	deleted []int
}

func (f *fakeStore) ListAll(ctx context.Context) ([]*domain.PlacementMeta, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.metas, nil
}

func (f *fakeStore) GetByPlacement(ctx context.Context, id int) (*domain.PlacementMeta, error) {
	for _, m := range f.metas {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) CreateAsset(ctx context.Context, meta *domain.PlacementMeta, content []byte) error {
	f.created = append(f.created, meta)
	f.metas = append(f.metas, meta)
	return nil
}

func (f *fakeStore) UpdateAsset(ctx context.Context, meta *domain.PlacementMeta, content []byte) error {
	f.updated = append(f.updated, meta)
	return nil
}

func (f *fakeStore) DeleteAsset(ctx context.Context, id int) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestSmallestUnusedID(t *testing.T) {
	tests := []struct {
		name string
		ids  []int
		want int
	}{
		{"empty store", nil, 1},
		{"gap in the middle", []int{1, 2, 4}, 3},
		{"contiguous", []int{1, 2, 3}, 4},
		{"starts above one", []int{2, 3}, 1},
		{"ignores non-positive ids", []int{0, -1, 1}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metas := make([]*domain.PlacementMeta, 0, len(tt.ids))
			for _, id := range tt.ids {
				metas = append(metas, &domain.PlacementMeta{ID: id})
			}
			assert.Equal(t, tt.want, SmallestUnusedID(metas))
		})
	}
}

func TestRegistry_CreateAllocatesSmallestUnusedID(t *testing.T) {
	store := &fakeStore{metas: []*domain.PlacementMeta{{ID: 1}, {ID: 2}, {ID: 4}}}
	reg := NewRegistry(store)

	p, err := reg.Create(context.Background(), "new frame", "ngang", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, p.ID)

	require.Len(t, store.created, 1)
	assert.Equal(t, 3, store.created[0].ID)
	assert.Equal(t, "new frame", store.created[0].Name)

	got, ok := reg.Get(3)
	require.True(t, ok)
	assert.Same(t, p, got)
}

func TestRegistry_CreateRollsBackRemoteOnLocalIDConflict(t *testing.T) {
	store := &fakeStore{metas: []*domain.PlacementMeta{{ID: 1}, {ID: 2}, {ID: 4}}}
	reg := NewRegistry(store)

	// Id 3 is free at the store but already held locally, so the remote
	// create succeeds and must then be rolled back.
	_, err := reg.Adopt(&domain.PlacementMeta{ID: 3, Name: "already here"})
	require.NoError(t, err)

	_, err = reg.Create(context.Background(), "latecomer", "ngang", nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	require.Len(t, store.created, 1)
	assert.Equal(t, []int{3}, store.deleted)
}

func TestRegistry_AdoptIsIdempotentPerID(t *testing.T) {
	reg := NewRegistry(&fakeStore{})

	meta := &domain.PlacementMeta{ID: 5, Name: "remote", PosX: 2}
	p1, err := reg.Adopt(meta)
	require.NoError(t, err)
	p2, err := reg.Adopt(meta)
	require.NoError(t, err)

	assert.Same(t, p1, p2, "one authoritative instance per id")
	assert.InDelta(t, 2.0, p1.Pose.Position.X, 1e-6)
}

func TestRegistry_AdoptRejectsInvalidID(t *testing.T) {
	reg := NewRegistry(&fakeStore{})

	_, err := reg.Adopt(&domain.PlacementMeta{ID: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestRegistry_UpdateContentSendsCurrentPose(t *testing.T) {
	store := &fakeStore{}
	reg := NewRegistry(store)

	p, err := reg.Adopt(&domain.PlacementMeta{ID: 2, Name: "frame", PosX: 3})
	require.NoError(t, err)

	require.NoError(t, reg.UpdateContent(context.Background(), 2, "ngang", []byte("bytes")))
	require.Len(t, store.updated, 1)
	assert.Equal(t, p.Name, store.updated[0].Name)
	assert.Equal(t, "ngang", store.updated[0].Type)
	assert.InDelta(t, 3.0, store.updated[0].PosX, 1e-6)

	assert.ErrorIs(t, reg.UpdateContent(context.Background(), 9, "", nil), domain.ErrNotFound)
}

func TestRegistry_RemoveRetiresInstance(t *testing.T) {
	store := &fakeStore{}
	reg := NewRegistry(store)

	p, err := reg.Adopt(&domain.PlacementMeta{ID: 2, Name: "x"})
	require.NoError(t, err)

	require.NoError(t, reg.Remove(context.Background(), 2, true))
	assert.False(t, p.Live())
	assert.Equal(t, []int{2}, store.deleted)

	_, ok := reg.Get(2)
	assert.False(t, ok)

	assert.ErrorIs(t, reg.Remove(context.Background(), 2, true), domain.ErrNotFound)
}

func TestRegistry_RemoveLocalOnly(t *testing.T) {
	store := &fakeStore{}
	reg := NewRegistry(store)

	_, err := reg.Adopt(&domain.PlacementMeta{ID: 2, Name: "x"})
	require.NoError(t, err)

	require.NoError(t, reg.Remove(context.Background(), 2, false))
	assert.Empty(t, store.deleted)
}

func TestRegistry_ListSortedByID(t *testing.T) {
	reg := NewRegistry(&fakeStore{})

	for _, id := range []int{4, 1, 3} {
		_, err := reg.Adopt(&domain.PlacementMeta{ID: id, Name: "x"})
		require.NoError(t, err)
	}

	got := reg.List()
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 3, got[1].ID)
	assert.Equal(t, 4, got[2].ID)
}
