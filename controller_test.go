package profscale_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/profscale/profscale"
	"github.com/profscale/profscale/requirements"
	pstest "github.com/profscale/profscale/testing"
	"github.com/profscale/profscale/types"
)

func intPtr(v int) *int {
	return &v
}

type controllerFixture struct {
	ctrl      *profscale.Controller
	group     *pstest.FakeGroup
	store     *requirements.Static
	inventory *pstest.FakeInventory
	scaler    *pstest.FakeAutoscaler
}

func newControllerFixture(t *testing.T, doc *types.RequirementsDocument) *controllerFixture {
	t.Helper()

	f := &controllerFixture{
		group:     pstest.NewFakeGroup(),
		store:     requirements.NewStatic(doc),
		inventory: pstest.NewFakeInventory(),
		scaler:    pstest.NewFakeAutoscaler(),
	}

	ctrl, err := profscale.NewController(profscale.TestConfig(), profscale.Services{
		Requirements: f.store,
		Tracker:      f.store,
		Inventory:    f.inventory,
		Autoscalers:  f.scaler,
		Versions:     pstest.NewFakeVersionSource("v1"),
	}, profscale.WithLogger(pstest.NewTestLogger(t)))
	require.NoError(t, err)
	f.ctrl = ctrl

	t.Cleanup(func() {
		require.NoError(t, ctrl.Stop())
	})

	return f
}

func singleProfileDoc(minimum int) *types.RequirementsDocument {
	return &types.RequirementsDocument{Profiles: []*types.ProfileRequirement{
		{Profile: "broker", MinimumInstances: intPtr(minimum)},
	}}
}

func TestNewController(t *testing.T) {
	t.Run("rejects missing services", func(t *testing.T) {
		_, err := profscale.NewController(profscale.TestConfig(), profscale.Services{})
		require.Error(t, err)
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		cfg := profscale.TestConfig()
		cfg.Group.PresenceTTL = cfg.Group.PresenceInterval // below 2x

		store := requirements.NewStatic(nil)
		_, err := profscale.NewController(cfg, profscale.Services{
			Requirements: store,
			Tracker:      store,
			Inventory:    pstest.NewFakeInventory(),
			Autoscalers:  pstest.NewFakeAutoscaler(),
			Versions:     pstest.NewFakeVersionSource("v1"),
		})
		require.ErrorContains(t, err, "PresenceTTL")
	})

	t.Run("starts in the Unknown state", func(t *testing.T) {
		f := newControllerFixture(t, nil)
		require.Equal(t, profscale.StateUnknown, f.ctrl.State())
	})
}

func TestController_Lifecycle(t *testing.T) {
	t.Run("start twice returns ErrControllerStarted", func(t *testing.T) {
		f := newControllerFixture(t, nil)

		require.NoError(t, f.ctrl.Start(t.Context(), f.group))
		require.ErrorIs(t, f.ctrl.Start(t.Context(), f.group), profscale.ErrControllerStarted)
	})

	t.Run("start after stop returns ErrControllerClosed", func(t *testing.T) {
		f := newControllerFixture(t, nil)

		require.NoError(t, f.ctrl.Start(t.Context(), f.group))
		require.NoError(t, f.ctrl.Stop())
		require.ErrorIs(t, f.ctrl.Start(t.Context(), f.group), profscale.ErrControllerClosed)
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		f := newControllerFixture(t, nil)

		require.NoError(t, f.ctrl.Start(t.Context(), f.group))
		require.NoError(t, f.ctrl.Stop())
		require.NoError(t, f.ctrl.Stop())
	})
}

func TestController_Mastership(t *testing.T) {
	t.Run("becomes master and runs an immediate pass", func(t *testing.T) {
		f := newControllerFixture(t, singleProfileDoc(2))
		require.NoError(t, f.ctrl.Start(t.Context(), f.group))

		f.group.SetMaster(true)
		f.group.Emit(profscale.EventConnected)

		require.Equal(t, profscale.StateMaster, f.ctrl.State())
		require.True(t, f.ctrl.IsMaster())

		// Membership was republished and the shortfall was acted on without
		// waiting for the poll interval.
		require.GreaterOrEqual(t, f.group.Updates(), 1)
		ups := f.scaler.ScaleUps()
		require.Len(t, ups, 1)
		require.Equal(t, 2, ups[0].Request.Count)
	})

	t.Run("becomes standby and stops reconciling", func(t *testing.T) {
		f := newControllerFixture(t, singleProfileDoc(2))
		require.NoError(t, f.ctrl.Start(t.Context(), f.group))

		f.group.SetMaster(true)
		f.group.Emit(profscale.EventConnected)
		require.Equal(t, profscale.StateMaster, f.ctrl.State())
		f.scaler.Reset()

		f.group.SetMaster(false)
		f.group.Emit(profscale.EventChanged)
		require.Equal(t, profscale.StateStandby, f.ctrl.State())
		require.False(t, f.ctrl.IsMaster())

		// Neither the poll scheduler nor configuration changes trigger
		// passes on a standby.
		f.store.Update(singleProfileDoc(5))
		time.Sleep(500 * time.Millisecond)
		require.Empty(t, f.scaler.ScaleUps())
	})

	t.Run("poll scheduler fires passes while master", func(t *testing.T) {
		f := newControllerFixture(t, singleProfileDoc(2))
		require.NoError(t, f.ctrl.Start(t.Context(), f.group))

		f.group.SetMaster(true)
		f.group.Emit(profscale.EventConnected)

		// TestConfig polls every 200ms; the immediate pass plus at least
		// two scheduled passes should land within a second.
		require.Eventually(t, func() bool {
			return len(f.scaler.ScaleUps()) >= 3
		}, 2*time.Second, 20*time.Millisecond)
	})

	t.Run("configuration change triggers a pass while master", func(t *testing.T) {
		f := newControllerFixture(t, singleProfileDoc(2))
		f.inventory.SetInstances("broker",
			types.InstanceRecord{ID: "broker-1", Profile: "broker", Alive: true},
			types.InstanceRecord{ID: "broker-2", Profile: "broker", Alive: true},
		)
		require.NoError(t, f.ctrl.Start(t.Context(), f.group))

		f.group.SetMaster(true)
		f.group.Emit(profscale.EventConnected)
		require.Empty(t, f.scaler.ScaleUps())

		f.store.Update(singleProfileDoc(4))

		require.Eventually(t, func() bool {
			ups := f.scaler.ScaleUps()
			return len(ups) >= 1 && ups[0].Request.Count == 2
		}, 2*time.Second, 20*time.Millisecond)
	})
}

func TestController_Disconnected(t *testing.T) {
	t.Run("disconnection stops reconciliation until reconnected", func(t *testing.T) {
		f := newControllerFixture(t, singleProfileDoc(2))
		require.NoError(t, f.ctrl.Start(t.Context(), f.group))

		f.group.SetMaster(true)
		f.group.Emit(profscale.EventConnected)
		require.Equal(t, profscale.StateMaster, f.ctrl.State())
		f.scaler.Reset()

		f.group.Emit(profscale.EventDisconnected)
		require.Equal(t, profscale.StateDisconnected, f.ctrl.State())

		// No passes while disconnected, neither from polling nor from
		// configuration changes.
		f.store.Update(singleProfileDoc(5))
		time.Sleep(500 * time.Millisecond)
		require.Empty(t, f.scaler.ScaleUps())

		// Reconnection as master resumes reconciliation immediately.
		f.group.Emit(profscale.EventConnected)
		require.Equal(t, profscale.StateMaster, f.ctrl.State())
		require.Eventually(t, func() bool {
			return len(f.scaler.ScaleUps()) >= 1
		}, 2*time.Second, 20*time.Millisecond)
	})
}

func TestController_InvalidEvents(t *testing.T) {
	t.Run("events before start are ignored", func(t *testing.T) {
		f := newControllerFixture(t, singleProfileDoc(2))

		f.group.SetMaster(true)
		f.group.AddListener(f.ctrl)
		f.group.Emit(profscale.EventConnected)

		require.Equal(t, profscale.StateUnknown, f.ctrl.State())
		require.Empty(t, f.scaler.ScaleUps())
	})

	t.Run("events from an unbound group are ignored", func(t *testing.T) {
		f := newControllerFixture(t, singleProfileDoc(2))
		require.NoError(t, f.ctrl.Start(t.Context(), f.group))

		other := pstest.NewFakeGroup()
		other.SetMaster(true)
		other.AddListener(f.ctrl)
		other.Emit(profscale.EventConnected)

		require.Equal(t, profscale.StateUnknown, f.ctrl.State())
	})

	t.Run("events after stop are ignored", func(t *testing.T) {
		f := newControllerFixture(t, singleProfileDoc(2))
		require.NoError(t, f.ctrl.Start(t.Context(), f.group))
		require.NoError(t, f.ctrl.Stop())

		f.group.SetMaster(true)
		f.group.AddListener(f.ctrl)
		f.group.Emit(profscale.EventConnected)

		require.NotEqual(t, profscale.StateMaster, f.ctrl.State())
		require.Empty(t, f.scaler.ScaleUps())
	})
}

func TestController_Hooks(t *testing.T) {
	t.Run("state and pass hooks fire on mastership", func(t *testing.T) {
		stateCh := make(chan [2]profscale.State, 8)
		passCh := make(chan profscale.PassResult, 8)

		store := requirements.NewStatic(singleProfileDoc(1))
		group := pstest.NewFakeGroup()

		ctrl, err := profscale.NewController(profscale.TestConfig(), profscale.Services{
			Requirements: store,
			Tracker:      store,
			Inventory:    pstest.NewFakeInventory(),
			Autoscalers:  pstest.NewFakeAutoscaler(),
			Versions:     pstest.NewFakeVersionSource("v1"),
		},
			profscale.WithLogger(pstest.NewTestLogger(t)),
			profscale.WithHooks(&profscale.Hooks{
				OnStateChanged: func(_ context.Context, from, to profscale.State) error {
					stateCh <- [2]profscale.State{from, to}
					return nil
				},
				OnReconcilePass: func(_ context.Context, result profscale.PassResult) error {
					passCh <- result
					return nil
				},
			}),
		)
		require.NoError(t, err)
		defer func() { require.NoError(t, ctrl.Stop()) }()

		require.NoError(t, ctrl.Start(t.Context(), group))
		group.SetMaster(true)
		group.Emit(profscale.EventConnected)

		select {
		case transition := <-stateCh:
			require.Equal(t, profscale.StateUnknown, transition[0])
			require.Equal(t, profscale.StateMaster, transition[1])
		case <-time.After(2 * time.Second):
			t.Fatal("OnStateChanged hook not invoked")
		}

		select {
		case result := <-passCh:
			require.Equal(t, 1, result.ScaleUps)
		case <-time.After(2 * time.Second):
			t.Fatal("OnReconcilePass hook not invoked")
		}
	})
}

func TestController_Reconcile(t *testing.T) {
	t.Run("manual pass is skipped while not master", func(t *testing.T) {
		f := newControllerFixture(t, singleProfileDoc(2))
		require.NoError(t, f.ctrl.Start(t.Context(), f.group))

		result, err := f.ctrl.Reconcile(t.Context())
		require.NoError(t, err)
		require.Zero(t, result.Commands())
		require.Empty(t, f.scaler.ScaleUps())
	})
}
