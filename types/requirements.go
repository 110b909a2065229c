package types

// ProfileRequirement declares the desired state for a single profile.
//
// A profile is a named class of workload. The requirement declares how many
// instances of the profile must be running and which other profiles must be
// fully provisioned before this profile may be scaled up.
type ProfileRequirement struct {
	// Profile is the unique profile identifier within a document.
	Profile string `json:"profile"`

	// MinimumInstances is the desired number of running instances.
	//
	// A nil value means scaling is not managed for this profile: the
	// reconciliation engine skips the profile entirely. Absence is NOT
	// equivalent to zero.
	MinimumInstances *int `json:"minimumInstances,omitempty"`

	// DependentProfiles lists profiles that must reach their own declared
	// minimum before this profile may be scaled up, evaluated in order.
	DependentProfiles []string `json:"dependentProfiles,omitempty"`
}

// HasMinimumInstances reports whether the requirement declares a minimum.
//
// Returns:
//   - bool: true if MinimumInstances is set
func (p *ProfileRequirement) HasMinimumInstances() bool {
	return p.MinimumInstances != nil
}

// SetMinimumInstances sets the declared minimum instance count.
//
// Parameters:
//   - count: Desired instance count
func (p *ProfileRequirement) SetMinimumInstances(count int) {
	p.MinimumInstances = &count
}

// RequirementsDocument is the operator-declared desired state: an ordered
// collection of profile requirements.
//
// The document is owned by an external requirements store and is read-only
// from the reconciliation core's perspective. Within one reconciliation pass
// the document is treated as an immutable snapshot, even if the backing
// store is mutable.
type RequirementsDocument struct {
	// Profiles holds the profile requirements in document order. The engine
	// processes profiles in this order.
	Profiles []*ProfileRequirement `json:"profiles"`
}

// ProfileRequirement returns the requirement for the given profile, or nil
// if the document does not declare one.
//
// Parameters:
//   - profile: Profile identifier to look up
//
// Returns:
//   - *ProfileRequirement: The requirement, or nil if absent
func (d *RequirementsDocument) ProfileRequirement(profile string) *ProfileRequirement {
	for _, p := range d.Profiles {
		if p != nil && p.Profile == profile {
			return p
		}
	}

	return nil
}

// GetOrCreateProfileRequirement returns the requirement for the given
// profile, creating and appending an empty (no-minimum) entry if absent.
//
// A created entry declares no minimum, so it never blocks dependency gating.
// Never returns nil.
//
// Parameters:
//   - profile: Profile identifier to look up or create
//
// Returns:
//   - *ProfileRequirement: The existing or newly created requirement
func (d *RequirementsDocument) GetOrCreateProfileRequirement(profile string) *ProfileRequirement {
	if p := d.ProfileRequirement(profile); p != nil {
		return p
	}

	p := &ProfileRequirement{Profile: profile}
	d.Profiles = append(d.Profiles, p)

	return p
}

// Clone returns a deep copy of the document.
//
// Requirements sources hand out clones so each reconciliation pass operates
// on its own snapshot.
//
// Returns:
//   - *RequirementsDocument: Independent copy of the document
func (d *RequirementsDocument) Clone() *RequirementsDocument {
	if d == nil {
		return nil
	}

	out := &RequirementsDocument{}
	if d.Profiles != nil {
		out.Profiles = make([]*ProfileRequirement, 0, len(d.Profiles))
		for _, p := range d.Profiles {
			if p == nil {
				continue
			}

			cp := &ProfileRequirement{Profile: p.Profile}
			if p.MinimumInstances != nil {
				m := *p.MinimumInstances
				cp.MinimumInstances = &m
			}
			if p.DependentProfiles != nil {
				cp.DependentProfiles = append([]string(nil), p.DependentProfiles...)
			}
			out.Profiles = append(out.Profiles, cp)
		}
	}

	return out
}
