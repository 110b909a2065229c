package strategy

import (
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/profscale/profscale/types"
)

// DefaultHashSeed is the default seed for StableHash.
const DefaultHashSeed uint64 = 0x9E3779B97F4A7C15

// StableHash selects victims by descending xxh3 hash of their IDs.
//
// Hashing decorrelates victim order from ID order, so removals spread
// evenly across clustered ID ranges instead of concentrating on one end.
// Selection is deterministic for a given candidate set and seed; ties on
// equal hashes fall back to ID order.
type StableHash struct {
	seed uint64
}

// Compile-time assertion that StableHash implements VictimSelector.
var _ types.VictimSelector = (*StableHash)(nil)

// NewStableHash creates a hash-ordered victim selector with the default
// seed.
//
// Returns:
//   - *StableHash: Initialized selector
func NewStableHash() *StableHash {
	return NewStableHashWithSeed(DefaultHashSeed)
}

// NewStableHashWithSeed creates a hash-ordered victim selector.
//
// Different seeds produce different victim orders; all nodes of a cluster
// must use the same seed for consistent decisions.
//
// Parameters:
//   - seed: Hash seed
//
// Returns:
//   - *StableHash: Initialized selector
func NewStableHashWithSeed(seed uint64) *StableHash {
	return &StableHash{seed: seed}
}

// SelectVictims returns up to count victims in descending hash order.
//
// Parameters:
//   - profile: Profile being scaled down, mixed into the hash so distinct
//     profiles with identical instance IDs pick independent victims
//   - candidates: Countable instances eligible for removal
//   - count: Number of victims requested
//
// Returns:
//   - []types.InstanceRecord: Selected victims (len <= count)
func (s *StableHash) SelectVictims(profile string, candidates []types.InstanceRecord, count int) []types.InstanceRecord {
	if count <= 0 || len(candidates) == 0 {
		return nil
	}

	type ranked struct {
		record types.InstanceRecord
		hash   uint64
	}

	rankings := make([]ranked, len(candidates))
	for i, r := range candidates {
		rankings[i] = ranked{
			record: r,
			hash:   xxh3.HashStringSeed(profile+"/"+r.ID, s.seed),
		}
	}

	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].hash != rankings[j].hash {
			return rankings[i].hash > rankings[j].hash
		}

		return rankings[i].record.ID > rankings[j].record.ID
	})

	if count > len(rankings) {
		count = len(rankings)
	}

	victims := make([]types.InstanceRecord, count)
	for i := range count {
		victims[i] = rankings[i].record
	}

	return victims
}
