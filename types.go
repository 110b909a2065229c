package profscale

import "github.com/profscale/profscale/types"

// Re-export types from the types package.
//
// This file provides a stable public API for the library's core types and
// interfaces via type aliases. The actual definitions live in the `types`
// subpackage, which internal packages can depend on without importing the
// root profscale package, while users still get a convenient
// `profscale.State`, `profscale.Logger`, etc.
type (
	State           = types.State
	GroupEvent      = types.GroupEvent
	MembershipState = types.MembershipState
	PassResult      = types.PassResult
	InstanceRecord  = types.InstanceRecord
	ScaleUpRequest  = types.ScaleUpRequest

	ProfileRequirement   = types.ProfileRequirement
	RequirementsDocument = types.RequirementsDocument
)

// Re-export interfaces from the types package for convenience.
type (
	Group               = types.Group
	GroupListener       = types.GroupListener
	GroupListenerFunc   = types.GroupListenerFunc
	CoordinationService = types.CoordinationService

	RequirementsSource         = types.RequirementsSource
	ConfigurationChangeTracker = types.ConfigurationChangeTracker
	InventoryProvider          = types.InventoryProvider
	ClusterVersionSource       = types.ClusterVersionSource

	Autoscaler        = types.Autoscaler
	AutoscalerFactory = types.AutoscalerFactory
	VictimSelector    = types.VictimSelector

	MetricsCollector = types.MetricsCollector
	Logger           = types.Logger
	Hooks            = types.Hooks
)

// Re-export State constants from the types package.
const (
	StateUnknown      = types.StateUnknown
	StateMaster       = types.StateMaster
	StateStandby      = types.StateStandby
	StateDisconnected = types.StateDisconnected
)

// Re-export GroupEvent constants from the types package.
const (
	EventConnected    = types.EventConnected
	EventChanged      = types.EventChanged
	EventDisconnected = types.EventDisconnected
)
