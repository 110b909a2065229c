package group

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/profscale/profscale/internal/logging"
	"github.com/profscale/profscale/internal/metrics"
	pstest "github.com/profscale/profscale/testing"
)

func TestPresencePublisher(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	t.Run("start publishes an entry immediately", func(t *testing.T) {
		_, nc := pstest.StartEmbeddedNATS(t)
		kv := pstest.CreateJetStreamKV(t, nc, "test-presence-1")

		p := newPresencePublisher(kv, "node-1", 200*time.Millisecond, func() bool { return true },
			logging.NewTest(t), metrics.NewNop())

		require.NoError(t, p.start(t.Context()))
		defer func() { _ = p.stop() }()

		kvEntry, err := kv.Get(t.Context(), presenceKey("node-1"))
		require.NoError(t, err)

		var entry presenceEntry
		require.NoError(t, json.Unmarshal(kvEntry.Value(), &entry))
		require.Equal(t, "node-1", entry.Node)
		require.True(t, entry.Master)
	})

	t.Run("stop deletes the presence entry", func(t *testing.T) {
		_, nc := pstest.StartEmbeddedNATS(t)
		kv := pstest.CreateJetStreamKV(t, nc, "test-presence-2")

		p := newPresencePublisher(kv, "node-1", 200*time.Millisecond, func() bool { return false },
			logging.NewTest(t), metrics.NewNop())

		require.NoError(t, p.start(t.Context()))
		require.NoError(t, p.stop())

		_, err := kv.Get(t.Context(), presenceKey("node-1"))
		require.Error(t, err)
	})

	t.Run("start twice returns ErrPresenceAlreadyStarted", func(t *testing.T) {
		_, nc := pstest.StartEmbeddedNATS(t)
		kv := pstest.CreateJetStreamKV(t, nc, "test-presence-3")

		p := newPresencePublisher(kv, "node-1", 200*time.Millisecond, func() bool { return false },
			logging.NewTest(t), metrics.NewNop())

		require.NoError(t, p.start(t.Context()))
		defer func() { _ = p.stop() }()

		require.ErrorIs(t, p.start(t.Context()), ErrPresenceAlreadyStarted)
	})

	t.Run("refresh reflects current mastership", func(t *testing.T) {
		_, nc := pstest.StartEmbeddedNATS(t)
		kv := pstest.CreateJetStreamKV(t, nc, "test-presence-4")

		master := false
		p := newPresencePublisher(kv, "node-1", time.Minute, func() bool { return master },
			logging.NewTest(t), metrics.NewNop())

		require.NoError(t, p.start(t.Context()))
		defer func() { _ = p.stop() }()

		master = true
		require.NoError(t, p.refresh(t.Context()))

		kvEntry, err := kv.Get(t.Context(), presenceKey("node-1"))
		require.NoError(t, err)

		var entry presenceEntry
		require.NoError(t, json.Unmarshal(kvEntry.Value(), &entry))
		require.True(t, entry.Master)
	})
}
