package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// All methods are called from internal goroutines and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better
// modularity.
type MetricsCollector interface {
	ControllerMetrics
	EngineMetrics
	GroupMetrics
}

// ControllerMetrics defines metrics for controller-level operations.
type ControllerMetrics interface {
	// RecordStateTransition records a controller state transition event.
	RecordStateTransition(from, to State)

	// RecordGroupEvent records a membership event received from the
	// coordination service.
	RecordGroupEvent(event GroupEvent)

	// RecordInvalidEvent records a membership event that was ignored
	// because required capabilities were unbound.
	RecordInvalidEvent()
}

// EngineMetrics defines metrics for reconciliation passes.
type EngineMetrics interface {
	// RecordReconcilePass records a completed pass.
	//
	// Parameters:
	//   - duration: Pass duration in seconds
	//   - result: Per-profile outcome summary
	RecordReconcilePass(duration float64, result PassResult)

	// RecordScaleUp records a scale-up command issued for a profile.
	RecordScaleUp(profile string, count int)

	// RecordScaleDown records a scale-down command issued for a profile.
	RecordScaleDown(profile string, count int)

	// RecordProfileSkipped records a profile skipped during a pass.
	//
	// Parameters:
	//   - profile: Profile identifier
	//   - reason: Skip reason ("no_minimum", "no_autoscaler", "gated")
	RecordProfileSkipped(profile, reason string)

	// RecordProfileError records a contained per-profile scaling failure.
	RecordProfileError(profile string)
}

// GroupMetrics defines metrics for coordination group operations.
type GroupMetrics interface {
	// RecordMastershipChange records this node gaining or losing mastership.
	RecordMastershipChange(isMaster bool)

	// RecordPresencePublish records a presence publish attempt.
	RecordPresencePublish(success bool)
}
