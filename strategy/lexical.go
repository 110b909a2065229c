package strategy

import (
	"sort"

	"github.com/profscale/profscale/types"
)

// LexicalOrder selects the instances with the lexically greatest IDs.
//
// When IDs encode age or ordinal position, this keeps the oldest instances
// running and removes the most recently added ones first.
type LexicalOrder struct{}

// Compile-time assertion that LexicalOrder implements VictimSelector.
var _ types.VictimSelector = (*LexicalOrder)(nil)

// NewLexicalOrder creates a lexical-order victim selector.
//
// Returns:
//   - *LexicalOrder: Initialized selector
func NewLexicalOrder() *LexicalOrder {
	return &LexicalOrder{}
}

// SelectVictims returns up to count victims in descending ID order.
//
// Parameters:
//   - profile: Profile being scaled down (unused)
//   - candidates: Countable instances eligible for removal
//   - count: Number of victims requested
//
// Returns:
//   - []types.InstanceRecord: Selected victims (len <= count)
func (s *LexicalOrder) SelectVictims(_ string, candidates []types.InstanceRecord, count int) []types.InstanceRecord {
	if count <= 0 || len(candidates) == 0 {
		return nil
	}

	sorted := make([]types.InstanceRecord, len(candidates))
	copy(sorted, candidates)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID > sorted[j].ID
	})

	if count > len(sorted) {
		count = len(sorted)
	}

	return sorted[:count]
}
