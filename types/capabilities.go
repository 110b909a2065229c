package types

import "context"

// RequirementsSource provides access to the operator-declared requirements
// document.
//
// Implementations can be backed by:
//   - NATS KV (built-in, see the requirements package)
//   - A static in-memory document (tests, embedded use)
//   - External configuration stores
type RequirementsSource interface {
	// Requirements returns a snapshot of the current requirements document.
	// The returned document is owned by the caller; mutating it does not
	// affect the backing store.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//
	// Returns:
	//   - *RequirementsDocument: Document snapshot, never nil on success
	//   - error: Retrieval error
	Requirements(ctx context.Context) (*RequirementsDocument, error)
}

// ConfigurationChangeTracker invokes registered callbacks asynchronously
// whenever the requirements document changes.
//
// Callbacks are registered with TrackConfiguration, which returns an untrack
// function (Go functions are not comparable, so deregistration is by handle
// rather than by value).
type ConfigurationChangeTracker interface {
	// TrackConfiguration registers cb to be invoked on every configuration
	// change until the returned untrack function is called. The untrack
	// function is idempotent.
	//
	// Parameters:
	//   - cb: Callback invoked asynchronously on each change
	//
	// Returns:
	//   - func(): Untrack function removing the registration
	TrackConfiguration(cb func()) (untrack func())
}

// InventoryProvider reports the live instances of each profile.
type InventoryProvider interface {
	// InstancesForProfile returns all known instances of the profile,
	// including dead and stale ones. Callers apply the countable filter.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - profile: Profile identifier
	//
	// Returns:
	//   - []InstanceRecord: Known instances of the profile
	//   - error: Lookup error
	InstancesForProfile(ctx context.Context, profile string) ([]InstanceRecord, error)
}

// ClusterVersionSource reports the cluster's default workload version,
// consulted only when building scale-up requests.
type ClusterVersionSource interface {
	// DefaultVersionID returns the version id new instances should be
	// provisioned at.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//
	// Returns:
	//   - string: Default version id
	//   - error: Lookup error
	DefaultVersionID(ctx context.Context) (string, error)
}
