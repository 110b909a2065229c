// Package hooks provides default hook implementations.
package hooks

import "github.com/profscale/profscale/types"

// NewNop creates a Hooks value with all callbacks unset.
//
// Returns:
//   - types.Hooks: Hooks that do nothing
func NewNop() types.Hooks {
	return types.Hooks{}
}
