package strategy

import (
	"sort"

	"github.com/profscale/profscale/types"
)

// PendingFirst selects provisioning-pending instances before live ones.
//
// Cancelling an instance that has not finished provisioning is usually
// cheaper than tearing down a live one. Among instances with the same
// liveness, victims are chosen in descending ID order.
type PendingFirst struct{}

// Compile-time assertion that PendingFirst implements VictimSelector.
var _ types.VictimSelector = (*PendingFirst)(nil)

// NewPendingFirst creates a pending-first victim selector.
//
// Returns:
//   - *PendingFirst: Initialized selector
func NewPendingFirst() *PendingFirst {
	return &PendingFirst{}
}

// SelectVictims returns up to count victims, pending instances first.
//
// Parameters:
//   - profile: Profile being scaled down (unused)
//   - candidates: Countable instances eligible for removal
//   - count: Number of victims requested
//
// Returns:
//   - []types.InstanceRecord: Selected victims (len <= count)
func (s *PendingFirst) SelectVictims(_ string, candidates []types.InstanceRecord, count int) []types.InstanceRecord {
	if count <= 0 || len(candidates) == 0 {
		return nil
	}

	sorted := make([]types.InstanceRecord, len(candidates))
	copy(sorted, candidates)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ProvisioningPending != b.ProvisioningPending {
			return a.ProvisioningPending
		}

		return a.ID > b.ID
	})

	if count > len(sorted) {
		count = len(sorted)
	}

	return sorted[:count]
}
