// Package engine implements the reconciliation pass.
//
// A pass walks the requirements document in declaration order and, for each
// profile with a declared minimum, compares the countable instance count
// against the minimum and issues at most one scale command. Passes are
// idempotent over unchanged cluster state and best effort per profile: a
// failing profile is logged and counted, never aborts the pass.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/profscale/profscale/types"
)

// Skip reasons recorded in metrics.
const (
	SkipReasonNoMinimum    = "no_minimum"
	SkipReasonNoAutoscaler = "no_autoscaler"
	SkipReasonGated        = "gated"
)

// Engine computes and applies per-profile scaling deltas.
//
// The engine holds no state between passes; every pass re-reads the
// requirements document and the inventory. Concurrent passes are prevented
// by the caller (the controller runs passes from a single goroutine).
type Engine struct {
	requirements types.RequirementsSource
	inventory    types.InventoryProvider
	factory      types.AutoscalerFactory
	versions     types.ClusterVersionSource
	logger       types.Logger
	metrics      types.EngineMetrics
}

// Config holds the capabilities an Engine needs.
type Config struct {
	Requirements types.RequirementsSource
	Inventory    types.InventoryProvider
	Factory      types.AutoscalerFactory
	Versions     types.ClusterVersionSource
	Logger       types.Logger
	Metrics      types.EngineMetrics
}

// New creates a reconciliation engine.
//
// Parameters:
//   - cfg: Capability bindings; all fields must be non-nil
//
// Returns:
//   - *Engine: A new engine instance
//   - error: Validation error if a required capability is missing
func New(cfg Config) (*Engine, error) {
	switch {
	case cfg.Requirements == nil:
		return nil, fmt.Errorf("engine: requirements source is required")
	case cfg.Inventory == nil:
		return nil, fmt.Errorf("engine: inventory provider is required")
	case cfg.Factory == nil:
		return nil, fmt.Errorf("engine: autoscaler factory is required")
	case cfg.Versions == nil:
		return nil, fmt.Errorf("engine: cluster version source is required")
	case cfg.Logger == nil:
		return nil, fmt.Errorf("engine: logger is required")
	case cfg.Metrics == nil:
		return nil, fmt.Errorf("engine: metrics collector is required")
	}

	return &Engine{
		requirements: cfg.Requirements,
		inventory:    cfg.Inventory,
		factory:      cfg.Factory,
		versions:     cfg.Versions,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}, nil
}

// Reconcile runs one reconciliation pass.
//
// The pass reads a single requirements snapshot and processes its profiles
// in document order. Instance counts are fetched at most once per profile
// and memoized for the duration of the pass, so dependency gating and delta
// computation observe a consistent view.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - trigger: What started the pass ("poll", "configuration", "mastership")
//
// Returns:
//   - types.PassResult: Per-profile outcome summary
//   - error: Snapshot retrieval error; per-profile failures are contained
//     and reported in the result instead
func (e *Engine) Reconcile(ctx context.Context, trigger string) (types.PassResult, error) {
	start := time.Now()
	result := types.PassResult{Trigger: trigger}

	doc, err := e.requirements.Requirements(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to read requirements: %w", err)
	}
	if doc == nil {
		doc = &types.RequirementsDocument{}
	}

	p := &pass{
		engine: e,
		doc:    doc,
		counts: make(map[string][]types.InstanceRecord),
	}

	for _, req := range doc.Profiles {
		if req == nil {
			continue
		}

		if err := p.reconcileProfile(ctx, req, &result); err != nil {
			result.Errors++
			e.metrics.RecordProfileError(req.Profile)
			e.logger.Error("Failed to reconcile profile",
				"profile", req.Profile,
				"trigger", trigger,
				"error", err)
		}
	}

	e.metrics.RecordReconcilePass(time.Since(start).Seconds(), result)
	e.logger.Debug("Reconciliation pass complete",
		"trigger", trigger,
		"scaleUps", result.ScaleUps,
		"scaleDowns", result.ScaleDowns,
		"satisfied", result.Satisfied,
		"gated", result.Gated,
		"skipped", result.Skipped,
		"errors", result.Errors)

	return result, nil
}

// pass carries the per-pass snapshot and the memoized instance cache.
type pass struct {
	engine *Engine
	doc    *types.RequirementsDocument
	counts map[string][]types.InstanceRecord
}

// countable returns the countable instances of the profile, querying the
// inventory at most once per pass.
func (p *pass) countable(ctx context.Context, profile string) ([]types.InstanceRecord, error) {
	if records, ok := p.counts[profile]; ok {
		return records, nil
	}

	all, err := p.engine.inventory.InstancesForProfile(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances for profile %s: %w", profile, err)
	}

	for _, r := range all {
		if !r.Countable() {
			p.engine.logger.Debug("Excluding dead instance from count", "profile", profile, "instance", r.ID)
		}
	}

	records := types.CountableInstances(all)
	p.counts[profile] = records

	return records, nil
}

// satisfied reports whether the profile's countable count meets its declared
// minimum. Profiles without a declared minimum are always satisfied, so an
// unmanaged dependency never blocks its dependents.
func (p *pass) satisfied(ctx context.Context, profile string) (bool, error) {
	req := p.doc.GetOrCreateProfileRequirement(profile)
	if !req.HasMinimumInstances() {
		return true, nil
	}

	records, err := p.countable(ctx, profile)
	if err != nil {
		return false, err
	}

	return len(records) >= *req.MinimumInstances, nil
}

// blockingDependency returns the first dependent profile, in declaration
// order, that has not reached its declared minimum. Returns "" when all
// dependencies are satisfied.
func (p *pass) blockingDependency(ctx context.Context, req *types.ProfileRequirement) (string, error) {
	for _, dep := range req.DependentProfiles {
		ok, err := p.satisfied(ctx, dep)
		if err != nil {
			return "", err
		}
		if !ok {
			return dep, nil
		}
	}

	return "", nil
}

func (p *pass) reconcileProfile(ctx context.Context, req *types.ProfileRequirement, result *types.PassResult) (err error) {
	e := p.engine

	// A panicking autoscaler must not take down the pass; contain it the
	// same way a returned error is contained.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while reconciling profile %s: %v", req.Profile, r)
		}
	}()

	if !req.HasMinimumInstances() {
		result.Skipped++
		e.metrics.RecordProfileSkipped(req.Profile, SkipReasonNoMinimum)
		e.logger.Debug("Skipping profile without declared minimum", "profile", req.Profile)

		return nil
	}

	// Resolve the autoscaler before counting: a profile nothing can scale is
	// skipped outright, even when its count happens to match the minimum.
	scaler := e.factory.CreateAutoscaler(p.doc, req)
	if scaler == nil {
		result.Skipped++
		e.metrics.RecordProfileSkipped(req.Profile, SkipReasonNoAutoscaler)
		e.logger.Warn("No autoscaler available for profile", "profile", req.Profile)

		return nil
	}

	records, err := p.countable(ctx, req.Profile)
	if err != nil {
		return err
	}

	minimum := *req.MinimumInstances
	delta := minimum - len(records)

	switch {
	case delta == 0:
		result.Satisfied++
		return nil

	case delta > 0:
		blocking, err := p.blockingDependency(ctx, req)
		if err != nil {
			return err
		}
		if blocking != "" {
			result.Gated++
			e.metrics.RecordProfileSkipped(req.Profile, SkipReasonGated)
			e.logger.Info("Withholding scale-up until dependency is satisfied",
				"profile", req.Profile,
				"dependency", blocking)

			return nil
		}

		return p.scaleUp(ctx, scaler, req, delta, result)

	default:
		return p.scaleDown(ctx, scaler, req, -delta, records, result)
	}
}

func (p *pass) scaleUp(ctx context.Context, scaler types.Autoscaler, req *types.ProfileRequirement, count int, result *types.PassResult) error {
	e := p.engine

	version, err := e.versions.DefaultVersionID(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve default version: %w", err)
	}

	e.logger.Info("Scaling up profile",
		"profile", req.Profile,
		"count", count,
		"minimum", *req.MinimumInstances,
		"version", version)

	err = scaler.CreateInstances(ctx, types.ScaleUpRequest{
		Profile:      req.Profile,
		Count:        count,
		Version:      version,
		Requirements: p.doc,
		Requirement:  req,
	})
	if err != nil {
		return fmt.Errorf("failed to create instances: %w", err)
	}

	result.ScaleUps++
	e.metrics.RecordScaleUp(req.Profile, count)

	return nil
}

func (p *pass) scaleDown(ctx context.Context, scaler types.Autoscaler, req *types.ProfileRequirement, count int, candidates []types.InstanceRecord, result *types.PassResult) error {
	e := p.engine

	e.logger.Info("Scaling down profile",
		"profile", req.Profile,
		"count", count,
		"minimum", *req.MinimumInstances)

	if err := scaler.DestroyInstances(ctx, req.Profile, count, candidates); err != nil {
		return fmt.Errorf("failed to destroy instances: %w", err)
	}

	result.ScaleDowns++
	e.metrics.RecordScaleDown(req.Profile, count)

	return nil
}
