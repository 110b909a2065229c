package types

// PassResult summarizes one reconciliation pass.
//
// Reconciliation is best effort per profile: the pass never fails as a
// whole, and the result records what happened to each profile instead.
type PassResult struct {
	// Trigger names what started the pass ("poll", "configuration",
	// "mastership").
	Trigger string

	// ScaleUps is the number of profiles a scale-up command was issued for.
	ScaleUps int

	// ScaleDowns is the number of profiles a scale-down command was issued
	// for.
	ScaleDowns int

	// Satisfied is the number of profiles whose countable count already
	// matched their declared minimum.
	Satisfied int

	// Gated is the number of profiles whose scale-up was withheld because a
	// dependent profile is under-provisioned.
	Gated int

	// Skipped is the number of profiles skipped for other reasons (no
	// declared minimum, no autoscaler available).
	Skipped int

	// Errors is the number of profiles whose scaling action failed. Failures
	// are contained per profile and never abort the pass.
	Errors int
}

// Commands returns the total number of scale commands issued in the pass.
func (r PassResult) Commands() int {
	return r.ScaleUps + r.ScaleDowns
}
