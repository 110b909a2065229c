// Package profscale implements a master-elected reconciliation controller
// that keeps running workload instances consistent with an operator-declared
// requirements document.
//
// # Overview
//
// A requirements document declares, per profile, how many instances must be
// running and which other profiles must be provisioned first. Controller
// nodes form a membership group through a coordination service; the single
// master runs reconciliation passes, the rest stand by and take over on
// failover.
//
// Each pass walks the document in declaration order and issues at most one
// scale command per profile:
//
//   - fewer countable instances than the minimum: scale up by the
//     difference, unless a dependent profile is still under-provisioned
//   - more countable instances than the minimum: scale down by the
//     difference
//   - a profile without a declared minimum is never touched
//
// Instances count while alive or provisioning-pending, so in-flight
// provisioning is never duplicated. Failures are contained per profile; a
// broken autoscaler never stops the rest of the pass.
//
// # Usage
//
//	store := requirements.NewStatic(doc)
//
//	ctrl, err := profscale.NewController(profscale.DefaultConfig(), profscale.Services{
//	    Requirements: store,
//	    Tracker:      store,
//	    Inventory:    inventory,
//	    Autoscalers:  factory,
//	    Versions:     versions,
//	}, profscale.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//
//	grp, err := profscale.NewNATSGroup(ctx, conn, cfg)
//	if err != nil {
//	    return err
//	}
//
//	if err := ctrl.Start(ctx, grp); err != nil {
//	    return err
//	}
//	defer ctrl.Stop()
//
// Reconciliation passes are triggered three ways while master: immediately
// on gaining mastership, on every requirements document change, and on a
// fixed poll interval.
//
// # Packages
//
//   - requirements: built-in requirements stores (in-memory, NATS KV)
//   - strategy: victim selectors for scale-down decisions
//   - types: core data model and capability interfaces
//   - testing: embedded NATS server and fakes for integration tests
package profscale
