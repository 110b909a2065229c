package requirements

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/profscale/profscale/types"
)

func intPtr(v int) *int {
	return &v
}

func TestStatic_Requirements(t *testing.T) {
	t.Run("returns independent snapshots", func(t *testing.T) {
		store := NewStatic(&types.RequirementsDocument{Profiles: []*types.ProfileRequirement{
			{Profile: "broker", MinimumInstances: intPtr(3)},
		}})

		doc, err := store.Requirements(t.Context())
		require.NoError(t, err)
		require.Len(t, doc.Profiles, 1)

		// Mutating the snapshot must not leak back into the store.
		doc.Profiles[0].SetMinimumInstances(99)
		doc.Profiles = append(doc.Profiles, &types.ProfileRequirement{Profile: "extra"})

		fresh, err := store.Requirements(t.Context())
		require.NoError(t, err)
		require.Len(t, fresh.Profiles, 1)
		require.Equal(t, 3, *fresh.Profiles[0].MinimumInstances)
	})

	t.Run("nil initial document yields an empty document", func(t *testing.T) {
		store := NewStatic(nil)

		doc, err := store.Requirements(t.Context())
		require.NoError(t, err)
		require.NotNil(t, doc)
		require.Empty(t, doc.Profiles)
	})
}

func TestStatic_TrackConfiguration(t *testing.T) {
	t.Run("update fires registered callbacks", func(t *testing.T) {
		store := NewStatic(nil)

		fired := make(chan struct{}, 4)
		untrack := store.TrackConfiguration(func() {
			fired <- struct{}{}
		})
		defer untrack()

		store.Update(&types.RequirementsDocument{})

		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatal("callback not invoked after update")
		}
	})

	t.Run("untrack stops callbacks and is idempotent", func(t *testing.T) {
		store := NewStatic(nil)

		fired := make(chan struct{}, 4)
		untrack := store.TrackConfiguration(func() {
			fired <- struct{}{}
		})

		untrack()
		untrack()

		store.Update(&types.RequirementsDocument{})

		select {
		case <-fired:
			t.Fatal("callback invoked after untrack")
		case <-time.After(200 * time.Millisecond):
		}
	})

	t.Run("multiple trackers fire independently", func(t *testing.T) {
		store := NewStatic(nil)

		a := make(chan struct{}, 4)
		b := make(chan struct{}, 4)
		untrackA := store.TrackConfiguration(func() { a <- struct{}{} })
		defer untrackA()
		untrackB := store.TrackConfiguration(func() { b <- struct{}{} })

		untrackB()
		store.Update(&types.RequirementsDocument{})

		select {
		case <-a:
		case <-time.After(2 * time.Second):
			t.Fatal("remaining callback not invoked")
		}

		select {
		case <-b:
			t.Fatal("untracked callback invoked")
		case <-time.After(100 * time.Millisecond):
		}
	})
}
