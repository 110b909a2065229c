package types

// InstanceRecord describes one workload instance as reported by the cluster
// inventory.
type InstanceRecord struct {
	// ID uniquely identifies the instance within the cluster.
	ID string `json:"id"`

	// Profile is the profile this instance belongs to.
	Profile string `json:"profile"`

	// Alive reports whether the instance is currently live.
	Alive bool `json:"alive"`

	// ProvisioningPending reports whether the instance is still being
	// provisioned. Pending instances count toward a profile's minimum so the
	// engine does not request duplicates while provisioning is in flight.
	ProvisioningPending bool `json:"provisioningPending"`
}

// Countable reports whether the instance counts toward its profile's
// minimum. Instances that are neither alive nor provisioning-pending are
// dead or stale and are excluded from all reconciliation counts.
//
// Returns:
//   - bool: true if alive or provisioning-pending
func (r InstanceRecord) Countable() bool {
	return r.Alive || r.ProvisioningPending
}

// CountableInstances filters records down to the countable ones.
//
// Parameters:
//   - records: Instance records to filter
//
// Returns:
//   - []InstanceRecord: Records where Countable() holds, in input order
func CountableInstances(records []InstanceRecord) []InstanceRecord {
	out := make([]InstanceRecord, 0, len(records))
	for _, r := range records {
		if r.Countable() {
			out = append(out, r)
		}
	}

	return out
}
