package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/profscale/profscale/types"
)

func record(id string, pending bool) types.InstanceRecord {
	return types.InstanceRecord{ID: id, Alive: !pending, ProvisioningPending: pending}
}

func ids(records []types.InstanceRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}

	return out
}

func TestPendingFirst(t *testing.T) {
	selector := NewPendingFirst()

	t.Run("pending instances are removed before live ones", func(t *testing.T) {
		candidates := []types.InstanceRecord{
			record("a", false),
			record("b", true),
			record("c", false),
			record("d", true),
		}

		victims := selector.SelectVictims("worker", candidates, 2)
		require.Equal(t, []string{"d", "b"}, ids(victims))
	})

	t.Run("falls back to descending ID order among live instances", func(t *testing.T) {
		candidates := []types.InstanceRecord{
			record("a", false),
			record("c", false),
			record("b", false),
		}

		victims := selector.SelectVictims("worker", candidates, 2)
		require.Equal(t, []string{"c", "b"}, ids(victims))
	})

	t.Run("count is clamped to the candidate set", func(t *testing.T) {
		candidates := []types.InstanceRecord{record("a", false)}

		victims := selector.SelectVictims("worker", candidates, 5)
		require.Len(t, victims, 1)
	})

	t.Run("non-positive count selects nothing", func(t *testing.T) {
		candidates := []types.InstanceRecord{record("a", false)}

		require.Nil(t, selector.SelectVictims("worker", candidates, 0))
		require.Nil(t, selector.SelectVictims("worker", candidates, -1))
	})

	t.Run("does not mutate the candidate slice", func(t *testing.T) {
		candidates := []types.InstanceRecord{
			record("a", false),
			record("b", true),
		}

		selector.SelectVictims("worker", candidates, 1)
		require.Equal(t, "a", candidates[0].ID)
		require.Equal(t, "b", candidates[1].ID)
	})
}

func TestLexicalOrder(t *testing.T) {
	selector := NewLexicalOrder()

	t.Run("greatest IDs are removed first", func(t *testing.T) {
		candidates := []types.InstanceRecord{
			record("worker-1", false),
			record("worker-3", false),
			record("worker-2", false),
		}

		victims := selector.SelectVictims("worker", candidates, 2)
		require.Equal(t, []string{"worker-3", "worker-2"}, ids(victims))
	})
}

func TestStableHash(t *testing.T) {
	candidates := []types.InstanceRecord{
		record("worker-1", false),
		record("worker-2", false),
		record("worker-3", false),
		record("worker-4", false),
	}

	t.Run("selection is deterministic", func(t *testing.T) {
		selector := NewStableHash()

		first := selector.SelectVictims("worker", candidates, 2)
		second := selector.SelectVictims("worker", candidates, 2)
		require.Equal(t, ids(first), ids(second))
	})

	t.Run("different seeds may produce different orders", func(t *testing.T) {
		a := NewStableHashWithSeed(1).SelectVictims("worker", candidates, len(candidates))
		b := NewStableHashWithSeed(2).SelectVictims("worker", candidates, len(candidates))

		// Both are complete orderings of the same set.
		require.ElementsMatch(t, ids(a), ids(b))
	})

	t.Run("profile is mixed into the hash", func(t *testing.T) {
		selector := NewStableHash()

		a := selector.SelectVictims("workers-east", candidates, len(candidates))
		b := selector.SelectVictims("workers-west", candidates, len(candidates))
		require.ElementsMatch(t, ids(a), ids(b))
	})

	t.Run("count is clamped to the candidate set", func(t *testing.T) {
		selector := NewStableHash()

		victims := selector.SelectVictims("worker", candidates, 99)
		require.Len(t, victims, len(candidates))
	})
}
