package types

import "context"

// ScaleUpRequest asks an autoscaler to create new instances of a profile.
//
// Requests are transient: constructed by the reconciliation engine, handed to
// the autoscaler, and discarded. The full requirements document and the
// triggering profile requirement are carried so autoscaler implementations
// can make placement decisions without re-querying the requirements store.
type ScaleUpRequest struct {
	// Profile is the profile to scale up.
	Profile string

	// Count is the number of new instances to create.
	Count int

	// Version is the cluster's current default version id; new instances are
	// provisioned at this version.
	Version string

	// Requirements is the document snapshot the decision was made against.
	Requirements *RequirementsDocument

	// Requirement is the profile requirement that triggered the scale-up.
	Requirement *ProfileRequirement
}

// Autoscaler performs the actual scaling mechanics for a profile.
//
// Implementations own provisioning and teardown; the engine only decides
// whether and how many.
type Autoscaler interface {
	// CreateInstances provisions req.Count new instances of req.Profile.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - req: Scale-up request with count, version and requirement context
	//
	// Returns:
	//   - error: Provisioning error (contained per profile by the engine)
	CreateInstances(ctx context.Context, req ScaleUpRequest) error

	// DestroyInstances removes count instances of the profile, choosing
	// victims from candidates. The engine supplies the full countable set;
	// victim selection policy belongs to the implementation (see the
	// strategy package for ready-made selectors).
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - profile: Profile to scale down
	//   - count: Number of instances to remove
	//   - candidates: Countable instances eligible for removal
	//
	// Returns:
	//   - error: Teardown error (contained per profile by the engine)
	DestroyInstances(ctx context.Context, profile string, count int, candidates []InstanceRecord) error
}

// AutoscalerFactory produces per-profile autoscaler capabilities.
type AutoscalerFactory interface {
	// CreateAutoscaler returns the autoscaler for the given profile
	// requirement, or nil when no autoscaler is available. A nil result is
	// not an error: the engine logs a warning and skips the profile for the
	// current pass.
	//
	// Parameters:
	//   - requirements: Document snapshot for the current pass
	//   - requirement: Profile requirement needing an autoscaler
	//
	// Returns:
	//   - Autoscaler: Per-profile autoscaler, or nil if unavailable
	CreateAutoscaler(requirements *RequirementsDocument, requirement *ProfileRequirement) Autoscaler
}

// VictimSelector chooses which instances to remove during a scale-down.
//
// Used by Autoscaler implementations; the engine itself never selects
// victims.
type VictimSelector interface {
	// SelectVictims returns up to count records from candidates to remove.
	// Implementations must be deterministic for a given candidate set so
	// repeated passes over unchanged state pick the same victims.
	//
	// Parameters:
	//   - profile: Profile being scaled down
	//   - candidates: Countable instances eligible for removal
	//   - count: Number of victims requested
	//
	// Returns:
	//   - []InstanceRecord: Selected victims (len <= count)
	SelectVictims(profile string, candidates []InstanceRecord, count int) []InstanceRecord
}
