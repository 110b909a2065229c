package metrics

import "github.com/profscale/profscale/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external metrics
// collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A new no-op metrics collector instance
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// ControllerMetrics implementation

// RecordStateTransition discards the state transition metric.
func (n *NopMetrics) RecordStateTransition(_ /* from */, _ /* to */ types.State) {
	// No-op
}

// RecordGroupEvent discards the group event metric.
func (n *NopMetrics) RecordGroupEvent(_ /* event */ types.GroupEvent) {
	// No-op
}

// RecordInvalidEvent discards the invalid event metric.
func (n *NopMetrics) RecordInvalidEvent() {
	// No-op
}

// EngineMetrics implementation

// RecordReconcilePass discards the reconcile pass metric.
func (n *NopMetrics) RecordReconcilePass(_ /* duration */ float64, _ /* result */ types.PassResult) {
	// No-op
}

// RecordScaleUp discards the scale-up metric.
func (n *NopMetrics) RecordScaleUp(_ /* profile */ string, _ /* count */ int) {
	// No-op
}

// RecordScaleDown discards the scale-down metric.
func (n *NopMetrics) RecordScaleDown(_ /* profile */ string, _ /* count */ int) {
	// No-op
}

// RecordProfileSkipped discards the profile skip metric.
func (n *NopMetrics) RecordProfileSkipped(_ /* profile */, _ /* reason */ string) {
	// No-op
}

// RecordProfileError discards the profile error metric.
func (n *NopMetrics) RecordProfileError(_ /* profile */ string) {
	// No-op
}

// GroupMetrics implementation

// RecordMastershipChange discards the mastership change metric.
func (n *NopMetrics) RecordMastershipChange(_ /* isMaster */ bool) {
	// No-op
}

// RecordPresencePublish discards the presence publish metric.
func (n *NopMetrics) RecordPresencePublish(_ /* success */ bool) {
	// No-op
}
