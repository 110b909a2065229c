// Package strategy provides built-in victim selector implementations.
//
// Victim selectors determine which instances an autoscaler removes during a
// scale-down. The package includes three built-in selectors:
//
//   - PendingFirst: removes provisioning-pending instances before live ones
//     (recommended default)
//   - LexicalOrder: removes instances with the lexically greatest IDs
//   - StableHash: removes instances with the greatest hashed IDs, spreading
//     removals evenly across ID ranges
//
// # Selector Selection Guide
//
// PendingFirst:
//   - Use when cancelling in-flight provisioning is cheaper than tearing
//     down live instances
//   - Falls back to lexical order among equals
//
// LexicalOrder:
//   - Use when instance IDs encode age or ordinal position
//   - Removing the greatest IDs keeps the oldest instances running
//
// StableHash:
//   - Use when IDs cluster (e.g., sequential suffixes) and removals should
//     not concentrate on one range
//   - Deterministic for a given candidate set and seed
//
// All selectors are deterministic: repeated passes over unchanged state
// pick the same victims. Custom selectors can be implemented by satisfying
// the types.VictimSelector interface.
package strategy
