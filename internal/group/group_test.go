package group

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	"github.com/profscale/profscale/internal/logging"
	"github.com/profscale/profscale/internal/metrics"
	pstest "github.com/profscale/profscale/testing"
	"github.com/profscale/profscale/types"
)

const testIDTTL = 5 * time.Second

func testGroupConfig(t *testing.T, conn *nats.Conn, path string) Config {
	t.Helper()

	return Config{
		Conn:             conn,
		GroupPath:        path,
		BucketPrefix:     "test",
		NodeIDPrefix:     "node",
		NodeIDMin:        0,
		NodeIDMax:        9,
		PresenceInterval: 200 * time.Millisecond,
		PresenceTTL:      1 * time.Second,
		ElectionTTL:      1 * time.Second,
		IDClaimTTL:       testIDTTL,
		OperationTimeout: 5 * time.Second,
		EventBufferSize:  64,
		Replicas:         1,
		Storage:          jetstream.MemoryStorage,
		Logger:           logging.NewTest(t),
		Metrics:          metrics.NewNop(),
	}
}

// eventRecorder collects events delivered to a listener.
type eventRecorder struct {
	mu     sync.Mutex
	events []types.GroupEvent
}

func (r *eventRecorder) OnGroupEvent(_ types.Group, event types.GroupEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

func (r *eventRecorder) snapshot() []types.GroupEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]types.GroupEvent(nil), r.events...)
}

func TestGroup_SingleNode(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	t.Run("first node becomes master and delivers Connected", func(t *testing.T) {
		_, nc := pstest.StartEmbeddedNATS(t)

		g, err := New(testGroupConfig(t, nc, "test/single"))
		require.NoError(t, err)

		recorder := &eventRecorder{}
		g.AddListener(recorder)

		require.NoError(t, g.Start(t.Context()))
		defer func() { require.NoError(t, g.Close()) }()

		require.True(t, g.IsMaster())
		require.NotEmpty(t, g.NodeID())

		require.Eventually(t, func() bool {
			events := recorder.snapshot()
			return len(events) >= 1 && events[0] == types.EventConnected
		}, 5*time.Second, 20*time.Millisecond)
	})

	t.Run("update before start returns ErrGroupNotStarted", func(t *testing.T) {
		_, nc := pstest.StartEmbeddedNATS(t)

		g, err := New(testGroupConfig(t, nc, "test/notstarted"))
		require.NoError(t, err)

		require.ErrorIs(t, g.Update(t.Context(), types.MembershipState{}), types.ErrGroupNotStarted)
	})

	t.Run("update after close returns ErrGroupClosed", func(t *testing.T) {
		_, nc := pstest.StartEmbeddedNATS(t)

		g, err := New(testGroupConfig(t, nc, "test/closed"))
		require.NoError(t, err)

		require.NoError(t, g.Start(t.Context()))
		require.NoError(t, g.Close())

		require.ErrorIs(t, g.Update(t.Context(), types.MembershipState{}), types.ErrGroupClosed)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		_, nc := pstest.StartEmbeddedNATS(t)

		g, err := New(testGroupConfig(t, nc, "test/idempotent"))
		require.NoError(t, err)

		require.NoError(t, g.Start(t.Context()))
		require.NoError(t, g.Close())
		require.NoError(t, g.Close())
	})

	t.Run("update republishes the presence entry", func(t *testing.T) {
		_, nc := pstest.StartEmbeddedNATS(t)

		g, err := New(testGroupConfig(t, nc, "test/update"))
		require.NoError(t, err)

		require.NoError(t, g.Start(t.Context()))
		defer func() { require.NoError(t, g.Close()) }()

		require.NoError(t, g.Update(t.Context(), types.MembershipState{}))
	})

	t.Run("start failure releases the claimed node ID", func(t *testing.T) {
		_, nc := pstest.StartEmbeddedNATS(t)
		cfg := testGroupConfig(t, nc, "test/startfail")

		js, err := jetstream.New(nc)
		require.NoError(t, err)

		// Pre-create a presence bucket too small to hold an entry, so Start
		// fails after the node ID was claimed.
		_, err = js.CreateKeyValue(t.Context(), jetstream.KeyValueConfig{
			Bucket:       bucketName(cfg.BucketPrefix, cfg.GroupPath, "presence"),
			MaxValueSize: 1,
			Storage:      jetstream.MemoryStorage,
		})
		require.NoError(t, err)

		g, err := New(cfg)
		require.NoError(t, err)
		require.Error(t, g.Start(t.Context()))

		idsKV, err := js.KeyValue(t.Context(), bucketName(cfg.BucketPrefix, cfg.GroupPath, "ids"))
		require.NoError(t, err)
		_, err = idsKV.Get(t.Context(), idKey(cfg.NodeIDPrefix+"-0"))
		require.ErrorIs(t, err, jetstream.ErrKeyNotFound)
	})
}

func TestGroup_PresenceEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	t.Run("own heartbeats do not emit Changed", func(t *testing.T) {
		_, nc := pstest.StartEmbeddedNATS(t)

		g, err := New(testGroupConfig(t, nc, "test/heartbeats"))
		require.NoError(t, err)

		recorder := &eventRecorder{}
		g.AddListener(recorder)

		require.NoError(t, g.Start(t.Context()))
		defer func() { require.NoError(t, g.Close()) }()

		// Several presence intervals pass; nothing about the group changes.
		time.Sleep(1200 * time.Millisecond)

		for _, e := range recorder.snapshot() {
			require.NotEqual(t, types.EventChanged, e)
		}
	})

	t.Run("republishing state on events does not feed back", func(t *testing.T) {
		_, nc := pstest.StartEmbeddedNATS(t)

		g, err := New(testGroupConfig(t, nc, "test/feedback"))
		require.NoError(t, err)

		// A listener that republishes membership state on every event, the
		// way the controller does on state transitions.
		var events atomic.Int32
		g.AddListener(types.GroupListenerFunc(func(grp types.Group, _ types.GroupEvent) {
			events.Add(1)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = grp.Update(ctx, types.MembershipState{})
		}))

		require.NoError(t, g.Start(t.Context()))
		defer func() { require.NoError(t, g.Close()) }()

		// Seed one extra republish and let the watcher observe the Puts.
		require.NoError(t, g.Update(t.Context(), types.MembershipState{}))
		time.Sleep(1200 * time.Millisecond)

		// Only the initial Connected event; the republishes must not echo.
		require.Equal(t, int32(1), events.Load())
	})

	t.Run("a joining node emits Changed on existing members", func(t *testing.T) {
		_, nc := pstest.StartEmbeddedNATS(t)

		g1, err := New(testGroupConfig(t, nc, "test/join"))
		require.NoError(t, err)

		recorder := &eventRecorder{}
		g1.AddListener(recorder)

		require.NoError(t, g1.Start(t.Context()))
		defer func() { require.NoError(t, g1.Close()) }()

		g2, err := New(testGroupConfig(t, nc, "test/join"))
		require.NoError(t, err)
		require.NoError(t, g2.Start(t.Context()))
		defer func() { require.NoError(t, g2.Close()) }()

		require.Eventually(t, func() bool {
			for _, e := range recorder.snapshot() {
				if e == types.EventChanged {
					return true
				}
			}

			return false
		}, 5*time.Second, 20*time.Millisecond)
	})
}

func TestGroup_TwoNodes(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	t.Run("exactly one node is master", func(t *testing.T) {
		_, nc := pstest.StartEmbeddedNATS(t)

		g1, err := New(testGroupConfig(t, nc, "test/pair"))
		require.NoError(t, err)
		require.NoError(t, g1.Start(t.Context()))
		defer func() { require.NoError(t, g1.Close()) }()

		g2, err := New(testGroupConfig(t, nc, "test/pair"))
		require.NoError(t, err)
		require.NoError(t, g2.Start(t.Context()))
		defer func() { require.NoError(t, g2.Close()) }()

		require.True(t, g1.IsMaster())
		require.False(t, g2.IsMaster())
		require.NotEqual(t, g1.NodeID(), g2.NodeID())
	})

	t.Run("standby takes over when the master leaves", func(t *testing.T) {
		_, nc := pstest.StartEmbeddedNATS(t)

		g1, err := New(testGroupConfig(t, nc, "test/failover"))
		require.NoError(t, err)
		require.NoError(t, g1.Start(t.Context()))

		g2, err := New(testGroupConfig(t, nc, "test/failover"))
		require.NoError(t, err)

		recorder := &eventRecorder{}
		g2.AddListener(recorder)

		require.NoError(t, g2.Start(t.Context()))
		defer func() { require.NoError(t, g2.Close()) }()

		require.True(t, g1.IsMaster())
		require.False(t, g2.IsMaster())

		// Master leaves; release deletes the master key so takeover happens
		// on the standby's next election tick rather than after TTL expiry.
		require.NoError(t, g1.Close())

		require.Eventually(t, g2.IsMaster, 10*time.Second, 50*time.Millisecond)

		// The takeover surfaced as a Changed event.
		require.Eventually(t, func() bool {
			for _, e := range recorder.snapshot() {
				if e == types.EventChanged {
					return true
				}
			}

			return false
		}, 5*time.Second, 20*time.Millisecond)
	})
}

func TestGroup_Listeners(t *testing.T) {
	t.Run("removed listeners stop receiving events", func(t *testing.T) {
		if testing.Short() {
			t.Skip("Skipping integration test in short mode")
		}

		_, nc := pstest.StartEmbeddedNATS(t)

		g, err := New(testGroupConfig(t, nc, "test/listeners"))
		require.NoError(t, err)

		recorder := &eventRecorder{}
		g.AddListener(recorder)
		g.RemoveListener(recorder)

		require.NoError(t, g.Start(t.Context()))
		defer func() { require.NoError(t, g.Close()) }()

		time.Sleep(300 * time.Millisecond)
		require.Empty(t, recorder.snapshot())
	})

	t.Run("func listeners are removed by identity", func(t *testing.T) {
		g, err := New(Config{Conn: &nats.Conn{}, GroupPath: "test/func"})
		require.NoError(t, err)

		var calls int
		fn := types.GroupListenerFunc(func(types.Group, types.GroupEvent) { calls++ })

		g.AddListener(fn)
		g.RemoveListener(fn)
		require.Empty(t, g.listeners)
		require.Zero(t, calls)
	})
}

func TestBucketName(t *testing.T) {
	require.Equal(t, "ps-a-b-election", bucketName("ps", "a/b", "election"))
	require.Equal(t, "ps-ctrl-presence", bucketName("ps", "/ctrl/", "presence"))
}
